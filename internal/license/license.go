// Package license implements the edition/license gate (C5): verification
// of the Ed25519-signed license record described in spec.md §6, and the
// HMAC-protected local rate-limit state that throttles repeated attempts
// against a malformed or guessed license. All license I/O is local; there
// is no network call.
package license

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"costpilot/internal/cperrors"
)

// Edition names the feature tier a verified license unlocks.
type Edition string

const (
	Free    Edition = "free"
	Premium Edition = "premium"
)

// Record is the signed license document: email, license key, expiry, and
// an Ed25519 signature over the canonical message
// "{email}|{license_key}|{expires}|{issuer}". Extra fields are ignored.
type Record struct {
	Email      string `json:"email"`
	LicenseKey string `json:"license_key"`
	Expires    string `json:"expires"`
	Signature  string `json:"signature"`
	Issuer     string `json:"issuer"`
}

// TrustedKeys maps an issuer name to its embedded Ed25519 public key.
type TrustedKeys map[string]ed25519.PublicKey

// CanonicalMessage builds the exact byte sequence the signature covers.
func (r Record) CanonicalMessage() []byte {
	return []byte(strings.Join([]string{r.Email, r.LicenseKey, r.Expires, r.Issuer}, "|"))
}

// Verified is the outcome of a successful verification: the record plus
// its resolved edition and parsed expiry.
type Verified struct {
	Record  Record
	Edition Edition
	Expires time.Time
}

func malformed(reason string) error {
	return cperrors.New(cperrors.KindLicense, cperrors.CodeLicenseMalformed, reason, nil)
}

// Verify checks a license record's signature against its issuer's
// trusted key and confirms it has not expired. A license with no
// matching issuer, an invalid signature, or expires <= now yields a
// non-nil error and a zero Verified (its Edition is empty, not Free) —
// callers should treat any non-nil error as "run as Free" rather than a
// fatal condition, per spec.md §6.
func Verify(keys TrustedKeys, rec Record, now time.Time) (Verified, error) {
	if rec.Email == "" || rec.LicenseKey == "" || rec.Expires == "" || rec.Signature == "" || rec.Issuer == "" {
		return Verified{}, malformed("license record is missing a required field")
	}
	expires, err := time.Parse(time.RFC3339, rec.Expires)
	if err != nil {
		return Verified{}, malformed(fmt.Sprintf("license expires field is not RFC 3339: %v", err))
	}
	sig, err := hex.DecodeString(rec.Signature)
	if err != nil {
		return Verified{}, malformed("license signature is not valid hex")
	}
	pub, ok := keys[rec.Issuer]
	if !ok {
		return Verified{}, cperrors.New(cperrors.KindLicense, cperrors.CodeLicenseSignatureMismatch,
			fmt.Sprintf("unknown license issuer %q", rec.Issuer),
			map[string]string{"issuer": rec.Issuer})
	}
	if !ed25519.Verify(pub, rec.CanonicalMessage(), sig) {
		return Verified{}, cperrors.New(cperrors.KindLicense, cperrors.CodeLicenseSignatureMismatch,
			"license signature does not verify", map[string]string{"issuer": rec.Issuer})
	}
	if !expires.After(now) {
		return Verified{}, cperrors.New(cperrors.KindLicense, cperrors.CodeLicenseExpired,
			fmt.Sprintf("license expired at %s", rec.Expires),
			map[string]string{"expires": rec.Expires})
	}
	return Verified{Record: rec, Edition: Premium, Expires: expires}, nil
}

// Resolve loads and verifies the license file at path, returning the Free
// edition (with no error) when the file does not exist — an absent
// license is the normal, unlicensed state, not a failure. Any other read
// or verification failure is returned as-is so the caller can decide
// whether to surface it as a diagnostic while still falling back to Free.
func Resolve(keys TrustedKeys, path string, now time.Time) (Verified, error) {
	if path == "" {
		return Verified{Edition: Free}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Verified{Edition: Free}, nil
		}
		return Verified{Edition: Free}, cperrors.New(cperrors.KindLicense, cperrors.CodeLicenseMissing,
			fmt.Sprintf("license file %q could not be read: %v", path, err),
			map[string]string{"path": path})
	}
	rec, err := parseRecord(raw)
	if err != nil {
		return Verified{Edition: Free}, err
	}
	v, err := Verify(keys, rec, now)
	if err != nil {
		return Verified{Edition: Free}, err
	}
	return v, nil
}
