// Package heuristics implements the heuristic store (C1): a versioned
// cost-formula table loaded from a canonical JSON file, verified against
// an embedded content digest, and looked up by (resource type, attribute
// predicates). Lookup is total — absence returns (Rule{}, false), never
// a panic or an error.
package heuristics

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"costpilot/internal/canon"
	"costpilot/internal/domain"
	"costpilot/internal/provenance"
)

// File is the on-disk heuristics document shape (spec.md §6).
type File struct {
	Version   string                 `json:"version"`
	Issuer    string                 `json:"issuer"`
	UpdatedAt time.Time              `json:"updated_at"`
	Rules     []domain.HeuristicRule `json:"rules"`
}

// Store is a loaded, immutable-for-the-invocation heuristic table, keyed
// by (id, version) with no duplicates.
type Store struct {
	file   File
	byKey  map[string]domain.HeuristicRule
	byType map[string][]domain.HeuristicRule
}

func key(id, version string) string { return id + "@" + version }

// Load reads, parses, and verifies a heuristics file against its embedded
// content digest (the file's own serialized rules, canonicalized). The
// digest is computed over the Rules array exactly as stored in the file —
// i.e. Canonicalize(file.Rules) — before build fills in any empty
// ProvenanceHash, so hashes filled in at load time are not part of it.
func Load(path string, embeddedDigest string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("heuristics: read %s: %w", path, err)
	}

	var file File
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("heuristics: parse %s: %w", path, err)
	}

	digest := canon.HashBytes(Canonicalize(file.Rules))
	if embeddedDigest != "" && digest != embeddedDigest {
		return nil, fmt.Errorf("heuristics: content hash mismatch for %s: want %s, got %s", path, embeddedDigest, digest)
	}

	return build(file)
}

// LoadBytes parses an in-memory heuristics document without a file-path
// round trip. Only tests call it; the CLI loads heuristics through Load.
func LoadBytes(raw []byte, embeddedDigest string) (*Store, error) {
	var file File
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("heuristics: parse: %w", err)
	}
	digest := canon.HashBytes(Canonicalize(file.Rules))
	if embeddedDigest != "" && digest != embeddedDigest {
		return nil, fmt.Errorf("heuristics: content hash mismatch: want %s, got %s", embeddedDigest, digest)
	}
	return build(file)
}

func build(file File) (*Store, error) {
	s := &Store{
		file:   file,
		byKey:  make(map[string]domain.HeuristicRule, len(file.Rules)),
		byType: make(map[string][]domain.HeuristicRule),
	}
	for _, rule := range file.Rules {
		k := key(rule.ID, rule.Version)
		if _, exists := s.byKey[k]; exists {
			return nil, fmt.Errorf("heuristics: duplicate rule id+version %s", k)
		}
		if rule.ProvenanceHash == "" {
			hash, err := provenance.HashRule(rule)
			if err != nil {
				return nil, fmt.Errorf("heuristics: hash rule %s: %w", rule.ID, err)
			}
			rule.ProvenanceHash = hash
		}
		s.byKey[k] = rule
		s.byType[rule.ResourceType] = append(s.byType[rule.ResourceType], rule)
	}
	return s, nil
}

// Version reports the loaded table's semver string.
func (s *Store) Version() string { return s.file.Version }

// Len reports how many rules the table holds.
func (s *Store) Len() int { return len(s.file.Rules) }

// Lookup finds the single best-matching rule for a resource type and its
// current attributes: the candidate whose predicate set matches and has
// the most predicates wins (more specific beats less specific); ties
// break on lexicographically smaller id, then version, for determinism.
// Absence returns (zero value, false) — lookup never panics.
func (s *Store) Lookup(resourceType string, attributes map[string]interface{}) (domain.HeuristicRule, bool) {
	candidates := s.byType[resourceType]
	var best domain.HeuristicRule
	found := false
	for _, rule := range candidates {
		if !matches(rule, attributes) {
			continue
		}
		if !found {
			best, found = rule, true
			continue
		}
		if len(rule.Predicates) > len(best.Predicates) {
			best = rule
		} else if len(rule.Predicates) == len(best.Predicates) {
			if rule.ID < best.ID || (rule.ID == best.ID && rule.Version < best.Version) {
				best = rule
			}
		}
	}
	return best, found
}

func matches(rule domain.HeuristicRule, attributes map[string]interface{}) bool {
	for _, pred := range rule.Predicates {
		value, ok := attributes[pred.Attribute]
		if !ok {
			return false
		}
		if !evaluatePredicate(pred, value) {
			return false
		}
	}
	return true
}

func evaluatePredicate(pred domain.AttributePredicate, value interface{}) bool {
	str := fmt.Sprintf("%v", value)
	switch pred.Operator {
	case "eq":
		return str == pred.Value
	case "ne":
		return str != pred.Value
	case "contains":
		return len(pred.Value) > 0 && containsSubstring(str, pred.Value)
	case "gt", "lt", "ge", "le":
		a, aErr := strconv.ParseFloat(str, 64)
		b, bErr := strconv.ParseFloat(pred.Value, 64)
		if aErr != nil || bErr != nil {
			return false
		}
		switch pred.Operator {
		case "gt":
			return a > b
		case "lt":
			return a < b
		case "ge":
			return a >= b
		case "le":
			return a <= b
		}
	}
	return false
}

func containsSubstring(haystack, needle string) bool {
	if len(needle) == 0 {
		return true
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

// Canonicalize serializes a rule set in the table's canonical on-disk
// form: sorted keys, 2-space indent, LF, normalized floats. Used both to
// verify the embedded content digest at Load time and to re-serialize a
// table after an operator edit.
func Canonicalize(rules []domain.HeuristicRule) []byte {
	buf, err := canon.Marshal(rules)
	if err != nil {
		// canon.Marshal only fails on unsupported reflect kinds, which
		// domain.HeuristicRule never contains; a failure here means the
		// type itself regressed, which is a programming error, not a
		// runtime condition callers should handle.
		panic(fmt.Sprintf("heuristics: canonicalize: %v", err))
	}
	return buf
}
