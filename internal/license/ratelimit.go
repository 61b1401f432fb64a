package license

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"costpilot/internal/cperrors"
)

// MaxAttemptsPerWindow bounds how many failed verification attempts a
// single window tolerates before further attempts are refused.
const MaxAttemptsPerWindow = 5

// WindowDuration is the length of the fixed window over which failed
// attempts count toward MaxAttemptsPerWindow. The window starts at
// WindowStart and is replaced by a fresh one once it is older than this.
const WindowDuration = 10 * time.Minute

// rateLimitState is the persisted shape; the HMAC signs its JSON body so
// a hand-edited or foreign file is detected. load does not trust such a
// file's counter: it starts a fresh window with zero attempts instead.
type rateLimitState struct {
	WindowStart time.Time `json:"window_start"`
	Attempts    int       `json:"attempts"`
	HMAC        string    `json:"hmac"`
}

func (s rateLimitState) signed() rateLimitState {
	s.HMAC = ""
	return s
}

func sign(s rateLimitState, secret []byte) (string, error) {
	body, err := json.Marshal(s.signed())
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// RateLimiter throttles license verification attempts against the
// HMAC-protected state file named in spec.md §6 "Persisted state".
type RateLimiter struct {
	path   string
	secret []byte
}

// NewRateLimiter binds a rate limiter to its state file path and HMAC
// secret. An empty path disables persistence; every check then allows.
func NewRateLimiter(path string, secret []byte) *RateLimiter {
	return &RateLimiter{path: path, secret: secret}
}

func (r *RateLimiter) load(now time.Time) (rateLimitState, error) {
	if r.path == "" {
		return rateLimitState{WindowStart: now}, nil
	}
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return rateLimitState{WindowStart: now}, nil
		}
		return rateLimitState{}, fmt.Errorf("license: read rate-limit state: %w", err)
	}
	var st rateLimitState
	if err := json.Unmarshal(raw, &st); err != nil {
		return rateLimitState{WindowStart: now}, nil
	}
	want, err := sign(st, r.secret)
	if err != nil {
		return rateLimitState{}, err
	}
	if !hmac.Equal([]byte(want), []byte(st.HMAC)) {
		// Tampered or foreign file: treat as a fresh window rather than
		// trusting a counter that could have been edited down.
		return rateLimitState{WindowStart: now}, nil
	}
	if now.Sub(st.WindowStart) > WindowDuration {
		return rateLimitState{WindowStart: now}, nil
	}
	return st, nil
}

func (r *RateLimiter) save(st rateLimitState) error {
	if r.path == "" {
		return nil
	}
	sig, err := sign(st, r.secret)
	if err != nil {
		return err
	}
	st.HMAC = sig
	body, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, append(body, '\n'), 0o600)
}

// Allow reports whether another verification attempt is permitted right
// now, without recording one. Call RecordFailure after a failed attempt.
func (r *RateLimiter) Allow(now time.Time) (bool, error) {
	st, err := r.load(now)
	if err != nil {
		return false, err
	}
	return st.Attempts < MaxAttemptsPerWindow, nil
}

// RecordFailure increments the window's failed-attempt counter and
// persists it. It should be called once per failed Verify/Resolve call.
func (r *RateLimiter) RecordFailure(now time.Time) error {
	st, err := r.load(now)
	if err != nil {
		return err
	}
	st.Attempts++
	return r.save(st)
}

// CheckAndGuard is the composed entry point: it refuses with
// CodeLicenseRateLimited when the window is exhausted, otherwise lets the
// caller proceed. Callers should invoke RecordFailure themselves after an
// unsuccessful Verify so the guard only tightens on genuine failures.
func (r *RateLimiter) CheckAndGuard(now time.Time) error {
	ok, err := r.Allow(now)
	if err != nil {
		return err
	}
	if !ok {
		return cperrors.New(cperrors.KindLicense, cperrors.CodeLicenseRateLimited,
			"too many license verification attempts; wait before retrying", nil)
	}
	return nil
}
