package call

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainCall    = "sleight/call/v1"
	DomainBinding = "sleight/binding/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte separator prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ID computes the content-addressed identity of a recorded call.
// Stable across runs given the same mock handle, description, and seq.
// Returns an error if the arguments cannot be canonically marshaled.
func ID(mockID string, desc Description, seq int64) (string, error) {
	obj := map[string]any{
		"mock":   mockID,
		"method": desc.Method,
		"args":   argsValue(desc.Args),
		"seq":    seq,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("call ID: %w", err)
	}
	return hashWithDomain(DomainCall, canonical), nil
}

// DescriptionHash computes a seq-independent identity for a call pattern.
// Two calls with the same method and arguments hash identically, so the
// hash can key stub bindings in the archive.
func DescriptionHash(desc Description) (string, error) {
	obj := map[string]any{
		"method": desc.Method,
		"args":   argsValue(desc.Args),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("description hash: %w", err)
	}
	return hashWithDomain(DomainBinding, canonical), nil
}

// argsValue normalizes a nil argument slice to an empty array so that
// f() and f() observed via different proxy layers hash identically.
func argsValue(args []any) []any {
	if args == nil {
		return []any{}
	}
	return args
}
