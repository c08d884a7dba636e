package sql

import (
	"encoding/json"

	"github.com/sharingcloud/prbot/domain"
	"github.com/sharingcloud/prbot/prerr"
)

type ruleDefinition struct {
	Conditions []domain.RuleCondition `json:"conditions"`
	Actions    []domain.RuleAction    `json:"actions"`
}

func encodeRule(rule domain.PullRequestRule) ([]byte, error) {
	raw, err := json.Marshal(ruleDefinition{Conditions: rule.Conditions, Actions: rule.Actions})
	if err != nil {
		return nil, prerr.JSON("encode pull request rule", err)
	}
	return raw, nil
}

func decodeRule(repositoryID uint64, name string, raw []byte) (domain.PullRequestRule, error) {
	var def ruleDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return domain.PullRequestRule{}, prerr.JSON("decode pull request rule", err)
	}
	return domain.PullRequestRule{
		RepositoryID: repositoryID,
		Name:         name,
		Conditions:   def.Conditions,
		Actions:      def.Actions,
	}, nil
}
