package detection

import (
	"encoding/json"
	"fmt"
	"strings"

	"costpilot/internal/cperrors"
	"costpilot/internal/domain"
)

// cdkParser recognizes the CDK diff schema: a top-level "stacks" array,
// each stack carrying a "resources" array of logical-ID-keyed changes.
type cdkParser struct{}

type cdkDiff struct {
	Stacks []cdkStack `json:"stacks"`
}

type cdkStack struct {
	StackName string        `json:"stackName"`
	Resources []cdkResource `json:"resources"`
}

type cdkResource struct {
	LogicalID        string                 `json:"logicalId"`
	ResourceType     string                 `json:"resourceType"`
	Action           string                 `json:"action"` // Add, Modify, Remove
	PropertiesBefore map[string]interface{} `json:"propertiesBefore"`
	PropertiesAfter  map[string]interface{} `json:"propertiesAfter"`
}

func (cdkParser) Sniff(topLevelKeys map[string]json.RawMessage) bool {
	_, ok := topLevelKeys["stacks"]
	return ok
}

func (cdkParser) Parse(raw []byte) ([]domain.ResourceChange, error) {
	var diff cdkDiff
	if err := json.Unmarshal(raw, &diff); err != nil {
		return nil, cperrors.New(cperrors.KindParse, cperrors.CodePlanFormatUnrecognized,
			fmt.Sprintf("malformed CDK diff: %v", err), nil)
	}

	var changes []domain.ResourceChange
	for _, stack := range diff.Stacks {
		for _, res := range stack.Resources {
			action, err := cdkAction(res.Action)
			if err != nil {
				return nil, err
			}
			changes = append(changes, domain.ResourceChange{
				Address:           cdkAddress(stack.StackName, res.LogicalID),
				ResourceType:      res.ResourceType,
				Action:            action,
				PriorConfig:       res.PropertiesBefore,
				NewConfig:         res.PropertiesAfter,
				ChangedAttributes: changedAttributes(res.PropertiesBefore, res.PropertiesAfter),
			})
		}
	}
	return changes, nil
}

func cdkAction(action string) (domain.Action, error) {
	switch action {
	case "Add":
		return domain.ActionCreate, nil
	case "Modify":
		return domain.ActionUpdate, nil
	case "Remove":
		return domain.ActionDelete, nil
	case "Replace":
		return domain.ActionReplace, nil
	default:
		return "", cperrors.New(cperrors.KindParse, cperrors.CodePlanFormatUnrecognized,
			fmt.Sprintf("unrecognized CDK action %q", action), nil)
	}
}

// cdkAddress joins a stack name and logical ID into the same dotted
// module-path form Terraform addresses use, so downstream components
// never need to know which parser produced a change.
func cdkAddress(stackName, logicalID string) string {
	return strings.TrimSpace(stackName) + "." + strings.TrimSpace(logicalID)
}
