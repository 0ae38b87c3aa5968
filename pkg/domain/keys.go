// Package domain holds the typed identifiers shared across features.
//
// Keys are constructed via Generate*/Parse* at trust boundaries; direct
// casting bypasses validation.
package domain

import (
	"crypto/rand"
	"strings"

	dErrors "keygate/pkg/domain-errors"
)

// keyAlphabet excludes ambiguous characters (0/O, 1/I/L) so keys survive
// being read over the phone to support staff.
const keyAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// KeyLength is the number of alphabet characters in a license or trial key.
// Displayed to humans in 4-character groups: XXXXX-XXXXX-XXXXX-XXXXX is not
// used; the canonical grouping is 5 groups of 4 (20 chars).
const KeyLength = 20

const keyGroupSize = 4

// LicenseKey is the opaque key identifying a license record.
type LicenseKey string

// TrialKey is the opaque key identifying a trial record. Trial keys carry a
// "T" first character reserved by generation so the two key spaces never
// collide.
type TrialKey string

func generateKey(first byte) string {
	// Rejection sampling: bytes at or above the largest multiple of the
	// alphabet size are redrawn, so every character is equally likely.
	const limit = 256 - 256%len(keyAlphabet)
	buf := make([]byte, 0, KeyLength)
	raw := make([]byte, KeyLength)
	for len(buf) < KeyLength {
		if _, err := rand.Read(raw); err != nil {
			// crypto/rand failure means the platform RNG is broken; nothing
			// sensible to do but stop.
			panic("domain: crypto/rand unavailable: " + err.Error())
		}
		for _, b := range raw {
			if int(b) >= limit {
				continue
			}
			buf = append(buf, keyAlphabet[int(b)%len(keyAlphabet)])
			if len(buf) == KeyLength {
				break
			}
		}
	}
	if first != 0 {
		buf[0] = first
	}
	return string(buf)
}

// GenerateLicenseKey returns a new random license key.
func GenerateLicenseKey() LicenseKey {
	for {
		k := generateKey(0)
		if k[0] != 'T' {
			return LicenseKey(k)
		}
	}
}

// GenerateTrialKey returns a new random trial key.
func GenerateTrialKey() TrialKey {
	return TrialKey(generateKey('T'))
}

// ParseLicenseKey validates external input as a license key. Accepts the
// grouped display form (with dashes) and the canonical form.
func ParseLicenseKey(s string) (LicenseKey, error) {
	k, err := parseKey(s)
	if err != nil {
		return "", err
	}
	if k[0] == 'T' {
		return "", dErrors.New(dErrors.CodeInvalidInput, "not a license key")
	}
	return LicenseKey(k), nil
}

// ParseTrialKey validates external input as a trial key.
func ParseTrialKey(s string) (TrialKey, error) {
	k, err := parseKey(s)
	if err != nil {
		return "", err
	}
	if k[0] != 'T' {
		return "", dErrors.New(dErrors.CodeInvalidInput, "not a trial key")
	}
	return TrialKey(k), nil
}

func parseKey(s string) (string, error) {
	s = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", ""))
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "key cannot be empty")
	}
	if len(s) != KeyLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "key has wrong length")
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(keyAlphabet, rune(s[i])) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "key contains invalid characters")
		}
	}
	return s, nil
}

// Display formats a key into 4-character groups for humans.
func (k LicenseKey) Display() string { return displayKey(string(k)) }

// Display formats a key into 4-character groups for humans.
func (k TrialKey) Display() string { return displayKey(string(k)) }

// Masked returns the display form with everything but the last group hidden.
// This is the only form that may appear in lists, logs, and audit details.
func (k LicenseKey) Masked() string { return maskKey(string(k)) }

// Masked returns the display form with everything but the last group hidden.
func (k TrialKey) Masked() string { return maskKey(string(k)) }

func displayKey(s string) string {
	if len(s) != KeyLength {
		return s
	}
	groups := make([]string, 0, KeyLength/keyGroupSize)
	for i := 0; i < len(s); i += keyGroupSize {
		groups = append(groups, s[i:i+keyGroupSize])
	}
	return strings.Join(groups, "-")
}

func maskKey(s string) string {
	if len(s) != KeyLength {
		return "****"
	}
	masked := strings.Repeat("****-", KeyLength/keyGroupSize-1)
	return masked + s[KeyLength-keyGroupSize:]
}
