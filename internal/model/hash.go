package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows the algorithm to change later.
const (
	DomainTask = "popdyn/task/v1"
)

// hashWithDomain computes SHA-256 with domain separation:
// SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash computes the content-addressed identity of the task.
//
// Two tasks hash equal iff their documents are equal after canonicalisation,
// so a clone hashes equal to its source and any count, coefficient or
// ordering change produces a new hash.
func (t *Task) Hash() (string, error) {
	raw, err := json.Marshal(t.Document())
	if err != nil {
		return "", fmt.Errorf("task hash: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("task hash: %w", err)
	}
	canonical, err := MarshalCanonical(generic)
	if err != nil {
		return "", fmt.Errorf("task hash: %w", err)
	}
	return hashWithDomain(DomainTask, canonical), nil
}

// MustHash is like Hash but panics on error.
// Use only in tests or when the task is known to be finite.
func (t *Task) MustHash() string {
	h, err := t.Hash()
	if err != nil {
		panic(err)
	}
	return h
}
