package execution

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "code and message",
			err:  &Error{Code: ErrCodeExecutionFailed, Message: "query timed out"},
			want: "EXECUTION_FAILED: query timed out",
		},
		{
			name: "with status",
			err:  &Error{Code: ErrCodeUnauthorized, Message: "token rejected", Status: 401},
			want: "UNAUTHORIZED: token rejected (status=401)",
		},
		{
			name: "with cause",
			err:  &Error{Code: ErrCodeTransport, Message: "post /reports/run", Err: errors.New("connection refused")},
			want: "TRANSPORT: post /reports/run: connection refused",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_Predicates(t *testing.T) {
	cause := errors.New("boom")
	wrapped := fmt.Errorf("run report: %w", &Error{Code: ErrCodeUnauthorized, Err: cause})

	assert.True(t, IsUnauthorized(wrapped))
	assert.False(t, IsNotReady(wrapped))
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, ErrCodeUnauthorized, CodeOf(wrapped))

	assert.True(t, IsNotReady(NewNotReadyError(stringer("empty"))))
	assert.Equal(t, ErrorCode(""), CodeOf(cause))
	assert.False(t, IsUnauthorized(nil))
}

type stringer string

func (s stringer) String() string { return string(s) }
