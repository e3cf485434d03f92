// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidStaffKey = errors.New("invalid staff key")

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateStaffKey creates an HMAC-based management key for an event.
// This is deterministic and verifiable
func GenerateStaffKey(eventID, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(eventID))
	sum := h.Sum(nil)
	// Use URL-safe base64 and trim padding for cleaner keys
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}

// ValidateStaffKey checks if the provided key manages the event
func ValidateStaffKey(eventID, staffKey, salt string) error {
	expected := GenerateStaffKey(eventID, salt)
	if !hmac.Equal([]byte(staffKey), []byte(expected)) {
		return ErrInvalidStaffKey
	}
	return nil
}
