package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Short returns the first 12 hex characters, enough to tell samples apart in logs.
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// SampleHash fingerprints the concrete contents of a sample.
type SampleHash Hash

func (h SampleHash) String() string { return Hash(h).String() }

// ComputeSampleHash hashes observation triples in the given order. Order is
// part of the identity because ranks are assigned positionally.
func ComputeSampleHash(values []float64, languages, domains []string) SampleHash {
	var data strings.Builder
	for i := range values {
		data.WriteString(fmt.Sprintf("%g|%s|%s\n", values[i], languages[i], domains[i]))
	}
	return SampleHash(NewHash([]byte(data.String())))
}

// ComputeSettingsHash hashes a flat settings map with sorted keys.
func ComputeSettingsHash(settings map[string]interface{}) Hash {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var data strings.Builder
	for _, key := range keys {
		data.WriteString(key)
		data.WriteString(fmt.Sprintf("%v", settings[key]))
	}
	return NewHash([]byte(data.String()))
}
