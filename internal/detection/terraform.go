package detection

import (
	"encoding/json"
	"fmt"
	"strings"

	"costpilot/internal/cperrors"
	"costpilot/internal/domain"
)

// terraformParser recognizes the Terraform plan JSON schema produced by
// `terraform show -json`: a top-level "resource_changes" array, each entry
// carrying an "address", a "type", and a "change" object with an "actions"
// list plus "before"/"after" snapshots.
type terraformParser struct{}

type terraformPlan struct {
	FormatVersion   string               `json:"format_version"`
	ResourceChanges []terraformResChange `json:"resource_changes"`
}

type terraformResChange struct {
	Address      string         `json:"address"`
	Type         string         `json:"type"`
	Name         string         `json:"name"`
	ProviderName string         `json:"provider_name"`
	ModuleAddr   string         `json:"module_address"`
	Change       terraformDelta `json:"change"`
}

type terraformDelta struct {
	Actions []string               `json:"actions"`
	Before  map[string]interface{} `json:"before"`
	After   map[string]interface{} `json:"after"`
}

func (terraformParser) Sniff(topLevelKeys map[string]json.RawMessage) bool {
	_, ok := topLevelKeys["resource_changes"]
	return ok
}

func (terraformParser) Parse(raw []byte) ([]domain.ResourceChange, error) {
	var plan terraformPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, cperrors.New(cperrors.KindParse, cperrors.CodePlanFormatUnrecognized,
			fmt.Sprintf("malformed Terraform plan: %v", err), nil)
	}

	changes := make([]domain.ResourceChange, 0, len(plan.ResourceChanges))
	for _, rc := range plan.ResourceChanges {
		action, err := terraformAction(rc.Change.Actions)
		if err != nil {
			return nil, err
		}
		if action == domain.ActionNoOp {
			continue
		}
		changes = append(changes, domain.ResourceChange{
			Address:           terraformAddress(rc),
			ResourceType:      rc.Type,
			Action:            action,
			PriorConfig:       rc.Change.Before,
			NewConfig:         rc.Change.After,
			ChangedAttributes: changedAttributes(rc.Change.Before, rc.Change.After),
		})
	}
	return changes, nil
}

// terraformAction maps a Terraform actions list to a single domain.Action.
// A two-element ["delete","create"] list is a Replace, regardless of order;
// any other combination longer than one element is unrecognized.
func terraformAction(actions []string) (domain.Action, error) {
	switch len(actions) {
	case 0:
		return "", cperrors.New(cperrors.KindParse, cperrors.CodePlanFormatUnrecognized,
			"resource change has an empty actions list", nil)
	case 1:
		switch actions[0] {
		case "create":
			return domain.ActionCreate, nil
		case "update":
			return domain.ActionUpdate, nil
		case "delete":
			return domain.ActionDelete, nil
		case "no-op", "read":
			return domain.ActionNoOp, nil
		default:
			return "", cperrors.New(cperrors.KindParse, cperrors.CodePlanFormatUnrecognized,
				fmt.Sprintf("unrecognized action %q", actions[0]), nil)
		}
	case 2:
		has := map[string]bool{actions[0]: true, actions[1]: true}
		if has["delete"] && has["create"] {
			return domain.ActionReplace, nil
		}
		return "", cperrors.New(cperrors.KindParse, cperrors.CodePlanFormatUnrecognized,
			fmt.Sprintf("unrecognized action pair %v", actions), nil)
	default:
		return "", cperrors.New(cperrors.KindParse, cperrors.CodePlanFormatUnrecognized,
			fmt.Sprintf("unrecognized action list %v", actions), nil)
	}
}

// terraformAddress canonicalizes a resource's module path and its own
// address into the single dotted form the rest of the pipeline keys on.
// Terraform already renders count/for_each indices as "[0]" or
// "[\"key\"]" within rc.Address; module_address, when present, is a
// prefix ("module.a.module.b") that duplicates the leading segments of
// Address, so Address alone is already the canonical form.
func terraformAddress(rc terraformResChange) string {
	return strings.TrimSpace(rc.Address)
}
