package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hiepdl65/reportbuilder/internal/ir"
)

// marshalConfiguration converts a configuration to canonical JSON TEXT
// and returns it together with its hash.
func marshalConfiguration(cfg ir.QueryConfiguration) (text, hash string, err error) {
	data, err := ir.CanonicalJSON(cfg)
	if err != nil {
		return "", "", fmt.Errorf("marshal configuration: %w", err)
	}
	hash, err = ir.ConfigurationHash(cfg)
	if err != nil {
		return "", "", fmt.Errorf("hash configuration: %w", err)
	}
	return string(data), hash, nil
}

// unmarshalConfiguration parses stored configuration TEXT. Filter values
// are decoded according to their declared data_type.
func unmarshalConfiguration(data string) (ir.QueryConfiguration, error) {
	var cfg ir.QueryConfiguration
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return ir.QueryConfiguration{}, fmt.Errorf("unmarshal configuration: %w", err)
	}
	return cfg.Clone(), nil
}

// parseTimestamp parses the RFC 3339 TEXT written by Store.timestamp.
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
