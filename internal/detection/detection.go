// Package detection implements the detection engine (C6): parses a
// Terraform plan JSON document or a CDK diff document into an ordered
// list of domain.ResourceChange values. Parsing never emits a partial
// result — a malformed plan fails the whole pipeline (spec.md §4.5).
package detection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"costpilot/internal/cperrors"
	"costpilot/internal/domain"
)

const (
	// MaxInputBytes is the hard input-size budget (spec.md §6).
	MaxInputBytes = 20 * 1024 * 1024
	// MaxNestingDepth is the hard nesting-depth budget (spec.md §6).
	MaxNestingDepth = 32
)

// Parser turns one recognized plan schema into resource changes.
type Parser interface {
	// Sniff reports whether raw looks like this parser's schema, based on
	// its top-level keys only.
	Sniff(topLevelKeys map[string]json.RawMessage) bool
	// Parse extracts resource changes from a document already confirmed
	// to match this parser's schema.
	Parse(raw []byte) ([]domain.ResourceChange, error)
}

var parsers = []Parser{terraformParser{}, cdkParser{}}

// Detect parses plan bytes into an ordered list of resource changes. It
// enforces the input-size and nesting-depth budgets before attempting any
// structural parse, then sniffs the schema from the document's top-level
// keys and dispatches to the matching Parser.
func Detect(raw []byte) ([]domain.ResourceChange, error) {
	if len(raw) > MaxInputBytes {
		return nil, cperrors.New(cperrors.KindParse, cperrors.CodePlanSizeExceedsLimit,
			fmt.Sprintf("plan size %d exceeds %d byte limit", len(raw), MaxInputBytes),
			map[string]string{"size_bytes": fmt.Sprintf("%d", len(raw))})
	}
	if err := checkNestingDepth(raw, MaxNestingDepth); err != nil {
		return nil, err
	}

	var topLevel map[string]json.RawMessage
	if err := json.Unmarshal(raw, &topLevel); err != nil {
		return nil, cperrors.New(cperrors.KindParse, cperrors.CodePlanFormatUnrecognized,
			fmt.Sprintf("top-level document is not a JSON object: %v", err), nil)
	}

	for _, p := range parsers {
		if p.Sniff(topLevel) {
			changes, err := p.Parse(raw)
			if err != nil {
				return nil, err
			}
			return normalize(changes), nil
		}
	}

	return nil, cperrors.New(cperrors.KindParse, cperrors.CodePlanFormatUnrecognized,
		"document matches neither the Terraform plan schema nor the CDK diff schema", nil)
}

// checkNestingDepth walks the document's JSON tokens without building a
// parse tree, rejecting documents nested beyond maxDepth before any
// struct-based decode is attempted. This is the streaming-friendly path
// referenced in spec.md §4.5: the depth check never holds more than the
// current token in memory.
func checkNestingDepth(raw []byte, maxDepth int) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	depth := 0
	maxSeen := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return cperrors.New(cperrors.KindParse, cperrors.CodePlanTruncated,
				fmt.Sprintf("plan document ended unexpectedly: %v", err), nil)
		}
		switch tok.(type) {
		case json.Delim:
			d := tok.(json.Delim)
			switch d {
			case '{', '[':
				depth++
				if depth > maxSeen {
					maxSeen = depth
				}
			case '}', ']':
				depth--
			}
		}
		if maxSeen > maxDepth {
			return cperrors.New(cperrors.KindParse, cperrors.CodeNestingDepthExceeded,
				fmt.Sprintf("plan document nesting exceeds %d levels", maxDepth),
				map[string]string{"max_depth": fmt.Sprintf("%d", maxDepth)})
		}
	}
	return nil
}

// normalize canonicalizes every change's address and sorts its changed
// attribute set lexicographically, per spec.md §4.5.
func normalize(changes []domain.ResourceChange) []domain.ResourceChange {
	for i := range changes {
		changes[i].Address = canonicalizeAddress(changes[i].Address)
		sort.Strings(changes[i].ChangedAttributes)
	}
	return changes
}

// canonicalizeAddress trims surrounding whitespace from an address. Both
// parsers already produce dot-joined module segments with bracketed
// count/for_each indices (e.g. "module.x.aws_instance.web[0]"), so no
// other rewriting is done here.
func canonicalizeAddress(address string) string {
	return strings.TrimSpace(address)
}

// changedAttributes diffs before/after maps, returning the keys whose
// values differ (added, removed, or changed).
func changedAttributes(before, after map[string]interface{}) []string {
	seen := make(map[string]bool)
	var changed []string
	for k, av := range after {
		seen[k] = true
		bv, existed := before[k]
		if !existed || !deepEqual(bv, av) {
			changed = append(changed, k)
		}
	}
	for k := range before {
		if seen[k] {
			continue
		}
		changed = append(changed, k)
	}
	sort.Strings(changed)
	return changed
}

func deepEqual(a, b interface{}) bool {
	aBytes, aErr := json.Marshal(a)
	bBytes, bErr := json.Marshal(b)
	if aErr != nil || bErr != nil {
		return fmt.Sprint(a) == fmt.Sprint(b)
	}
	return bytes.Equal(aBytes, bBytes)
}
