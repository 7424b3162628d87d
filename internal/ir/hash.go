package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainConfiguration = "reportbuilder/configuration/v1"
	DomainTemplate      = "reportbuilder/template/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ConfigurationHash computes a content-addressed id for a configuration.
// Two snapshots of an unchanged selection hash identically, which is what
// makes re-issuing a run reproducible.
func ConfigurationHash(cfg QueryConfiguration) (string, error) {
	canonical, err := CanonicalJSON(cfg)
	if err != nil {
		return "", fmt.Errorf("ConfigurationHash: %w", err)
	}
	return hashWithDomain(DomainConfiguration, canonical), nil
}

// TemplateHash computes a content-addressed id for a named template.
func TemplateHash(t Template) (string, error) {
	canonical, err := CanonicalJSON(t)
	if err != nil {
		return "", fmt.Errorf("TemplateHash: %w", err)
	}
	return hashWithDomain(DomainTemplate, canonical), nil
}

// MustConfigurationHash is like ConfigurationHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustConfigurationHash(cfg QueryConfiguration) string {
	h, err := ConfigurationHash(cfg)
	if err != nil {
		panic(err)
	}
	return h
}
