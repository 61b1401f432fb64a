package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"costpilot/internal/cperrors"
	"costpilot/internal/domain"
)

// ruleDocument is the on-disk shape of one policy file: a keyed document
// of rules, each carrying its condition as a source string (the
// serialized form of the AST named in spec.md §6).
type ruleDocument struct {
	Rules []ruleEntry `yaml:"rules"`
}

type ruleEntry struct {
	ID           string `yaml:"id"`
	Severity     string `yaml:"severity"`
	Condition    string `yaml:"condition"`
	Action       string `yaml:"action"`
	State        string `yaml:"state"`
	ExemptionRef string `yaml:"exemption_ref"`
}

func malformedRule(path, id, reason string) error {
	return cperrors.New(cperrors.KindValidation, cperrors.CodePolicyConditionMalformed,
		fmt.Sprintf("policy %q in %s: %s", id, path, reason),
		map[string]string{"path": path, "policy_id": id})
}

// LoadDir reads every *.yaml/*.yml file in dir and parses its rules,
// returning them sorted by ID so callers get deterministic ordering even
// before Evaluate re-sorts internally.
func LoadDir(dir string) ([]Rule, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("policy: read dir %q: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	var rules []Rule
	for _, path := range files {
		fileRules, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		rules = append(rules, fileRules...)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules, nil
}

// LoadFile parses one policy file's rules.
func LoadFile(path string) ([]Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, cperrors.New(cperrors.KindParse, cperrors.CodeHeuristicFileCorrupt,
			fmt.Sprintf("policy file %q could not be read: %v", path, err),
			map[string]string{"path": path})
	}
	var doc ruleDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, cperrors.New(cperrors.KindParse, cperrors.CodeHeuristicFileCorrupt,
			fmt.Sprintf("policy file %q is not valid YAML: %v", path, err),
			map[string]string{"path": path})
	}
	rules := make([]Rule, 0, len(doc.Rules))
	for _, entry := range doc.Rules {
		if entry.ID == "" {
			return nil, malformedRule(path, entry.ID, "missing id")
		}
		cond, err := Parse(entry.Condition)
		if err != nil {
			return nil, malformedRule(path, entry.ID, fmt.Sprintf("condition: %v", err))
		}
		rules = append(rules, Rule{
			ID:           entry.ID,
			Severity:     domain.Severity(entry.Severity),
			Condition:    cond,
			Action:       domain.PolicyAction(entry.Action),
			State:        domain.LifecycleState(entry.State),
			ExemptionRef: entry.ExemptionRef,
		})
	}
	return rules, nil
}
