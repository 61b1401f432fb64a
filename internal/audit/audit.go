// Package audit implements the append-only, hash-chained, HMAC-signed
// evidence ledger (C11). It is distinct from internal/logging's
// operator-facing debug log: only core state-mutating actions append
// here (policy lifecycle transitions, approvals/rejections, exemption
// create/revoke/expire, baseline updates, configuration changes) and
// every entry carries a hash over its own canonical fields plus its
// predecessor's hash, so tampering with any entry breaks every hash after
// it. Prediction emission never appends — it is pure.
package audit

import (
	"bufio"
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"costpilot/internal/canon"
	"costpilot/internal/config"
	"costpilot/internal/cperrors"
)

// Entry is one append-only ledger record.
type Entry struct {
	Sequence  int64                  `json:"sequence"`
	Timestamp time.Time              `json:"timestamp"`
	Action    string                 `json:"action"`
	Actor     string                 `json:"actor"`
	Target    string                 `json:"target,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	PrevHash  string                 `json:"prev_hash"`
	Hash      string                 `json:"hash"`
	HMAC      string                 `json:"hmac"`
}

// payload is the subset of an Entry's fields that its Hash covers; Hash
// and HMAC are necessarily excluded, since they are computed from this.
type payload struct {
	Sequence  int64                  `json:"sequence"`
	Timestamp time.Time              `json:"timestamp"`
	Action    string                 `json:"action"`
	Actor     string                 `json:"actor"`
	Target    string                 `json:"target,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	PrevHash  string                 `json:"prev_hash"`
}

// Event is what a caller appends; the ledger fills in Sequence, Timestamp,
// PrevHash, Hash, and HMAC.
type Event struct {
	Action string
	Actor  string
	Target string
	Fields map[string]interface{}
}

// BrokenChainError reports the first sequence number whose recomputed
// hash does not match its recorded hash.
type BrokenChainError struct {
	At int64
}

func (e *BrokenChainError) Error() string {
	return fmt.Sprintf("audit: chain broken at sequence %d", e.At)
}

// Log is a process-wide handle on one append-only ledger file. It must be
// opened with Open before any Append, and closed with Close at teardown
// so the underlying file handle is released.
type Log struct {
	mu       sync.Mutex
	path     string
	secret   []byte
	file     *os.File
	lastHash string
	lastSeq  int64
}

// Open initializes the ledger: if path does not exist, it is created and
// seeded with a genesis hash derived from secret (or config.GenesisSentinel
// when secret is empty); if it exists, the chain is read to recover the
// last sequence number and hash. Open does not verify the chain; call
// VerifyChain explicitly when that matters to the caller.
func Open(path string, secret []byte) (*Log, error) {
	if len(secret) == 0 {
		secret = []byte(config.GenesisSentinel)
	}

	l := &Log{path: path, secret: secret, lastHash: genesisHash(secret), lastSeq: -1}

	if existing, err := os.ReadFile(path); err == nil && len(existing) > 0 {
		entries, err := parseEntries(existing)
		if err != nil {
			return nil, err
		}
		if len(entries) > 0 {
			last := entries[len(entries)-1]
			l.lastSeq = last.Sequence
			l.lastHash = last.Hash
		}
	} else if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("audit: read %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	l.file = f
	return l, nil
}

func genesisHash(secret []byte) string {
	sum := sha256.Sum256(append([]byte("costpilot-audit-genesis:"), secret...))
	return hex.EncodeToString(sum[:])
}

// Append writes one event as the next sequence number, chained to the
// previous entry's hash, signed with the ledger's HMAC secret. The file
// lock is held only for the duration of the write.
func (l *Log) Append(event Event) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	seq := l.lastSeq + 1
	p := payload{
		Sequence:  seq,
		Timestamp: time.Now().UTC(),
		Action:    event.Action,
		Actor:     event.Actor,
		Target:    event.Target,
		Fields:    event.Fields,
		PrevHash:  l.lastHash,
	}

	canonicalPayload, err := canon.Marshal(p)
	if err != nil {
		return 0, fmt.Errorf("audit: canonicalize entry: %w", err)
	}
	hash := canon.HashBytes(canonicalPayload)
	mac := hmac.New(sha256.New, l.secret)
	mac.Write([]byte(hash))
	signature := hex.EncodeToString(mac.Sum(nil))

	entry := Entry{
		Sequence: p.Sequence, Timestamp: p.Timestamp, Action: p.Action, Actor: p.Actor,
		Target: p.Target, Fields: p.Fields, PrevHash: p.PrevHash, Hash: hash, HMAC: signature,
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("audit: marshal entry: %w", err)
	}
	line = append(line, '\n')

	if err := lockExclusive(l.file); err != nil {
		return 0, fmt.Errorf("audit: lock %s: %w", l.path, err)
	}
	_, writeErr := l.file.Write(line)
	unlockErr := unlock(l.file)
	if writeErr != nil {
		return 0, fmt.Errorf("audit: append: %w", writeErr)
	}
	if unlockErr != nil {
		return 0, fmt.Errorf("audit: unlock %s: %w", l.path, unlockErr)
	}

	l.lastSeq = seq
	l.lastHash = hash
	return seq, nil
}

// VerifyChain reads every entry in the ledger and recomputes its hash and
// HMAC from its canonical fields, returning the first mismatch found.
func (l *Log) VerifyChain() error {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("audit: read %s: %w", l.path, err)
	}
	entries, err := parseEntries(raw)
	if err != nil {
		return err
	}

	prevHash := genesisHash(l.secret)
	prevSeq := int64(-1)
	for _, e := range entries {
		if e.Sequence != prevSeq+1 {
			return cperrors.New(cperrors.KindValidation, cperrors.CodeAuditSequenceGap,
				fmt.Sprintf("expected sequence %d, found %d", prevSeq+1, e.Sequence),
				map[string]string{"sequence": fmt.Sprintf("%d", e.Sequence)})
		}
		if e.PrevHash != prevHash {
			return &BrokenChainError{At: e.Sequence}
		}

		p := payload{Sequence: e.Sequence, Timestamp: e.Timestamp, Action: e.Action, Actor: e.Actor,
			Target: e.Target, Fields: e.Fields, PrevHash: e.PrevHash}
		canonicalPayload, err := canon.Marshal(p)
		if err != nil {
			return fmt.Errorf("audit: canonicalize entry %d: %w", e.Sequence, err)
		}
		wantHash := canon.HashBytes(canonicalPayload)
		if wantHash != e.Hash {
			return &BrokenChainError{At: e.Sequence}
		}

		mac := hmac.New(sha256.New, l.secret)
		mac.Write([]byte(wantHash))
		wantSig := hex.EncodeToString(mac.Sum(nil))
		if !hmac.Equal([]byte(wantSig), []byte(e.HMAC)) {
			return &BrokenChainError{At: e.Sequence}
		}

		prevHash = e.Hash
		prevSeq = e.Sequence
	}
	return nil
}

// Filter narrows Query's results; zero-value fields are unconstrained.
type Filter struct {
	Action string
	Actor  string
	Target string
	Since  time.Time
	Until  time.Time
}

// Query returns every entry matching filter, in ledger (sequence) order.
func (l *Log) Query(filter Filter) ([]Entry, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("audit: read %s: %w", l.path, err)
	}
	entries, err := parseEntries(raw)
	if err != nil {
		return nil, err
	}

	var out []Entry
	for _, e := range entries {
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.Actor != "" && e.Actor != filter.Actor {
			continue
		}
		if filter.Target != "" && e.Target != filter.Target {
			continue
		}
		if !filter.Since.IsZero() && e.Timestamp.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && e.Timestamp.After(filter.Until) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Close flushes and releases the underlying file handle.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func parseEntries(raw []byte) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, cperrors.New(cperrors.KindParse, cperrors.CodeHeuristicFileCorrupt,
				fmt.Sprintf("audit log line %d is not valid JSON: %v", lineNo, err), nil)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: scan: %w", err)
	}
	return entries, nil
}
