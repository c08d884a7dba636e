// Package rules implements the pull-request rule engine: resolving
// which repository-scoped (conditions, actions) pairs match a given
// pull request, and applying their actions.
package rules

import (
	"context"

	"github.com/sharingcloud/prbot/domain"
	"github.com/sharingcloud/prbot/forgeapi"
	"github.com/sharingcloud/prbot/storage"
)

// Resolve loads all rules for repositoryID and returns the ones that
// are not inert and whose conditions all match upstreamPR.
func Resolve(ctx context.Context, store storage.Storage, repositoryID uint64, upstreamPR forgeapi.PullRequest) ([]domain.PullRequestRule, error) {
	all, err := store.PullRequestRulesList(ctx, repositoryID)
	if err != nil {
		return nil, err
	}
	matched := make([]domain.PullRequestRule, 0, len(all))
	for _, rule := range all {
		if rule.Inert() {
			continue
		}
		if allConditionsMatch(rule.Conditions, upstreamPR) {
			matched = append(matched, rule)
		}
	}
	return matched, nil
}

func allConditionsMatch(conditions []domain.RuleCondition, pr forgeapi.PullRequest) bool {
	for _, c := range conditions {
		if !conditionMatches(c, pr) {
			return false
		}
	}
	return true
}

func conditionMatches(c domain.RuleCondition, pr forgeapi.PullRequest) bool {
	switch c.Kind {
	case domain.ConditionAuthor:
		return pr.User.Login == c.Value
	case domain.ConditionBaseBranch:
		return c.Value == domain.Wildcard || pr.Base.Ref == c.Value
	case domain.ConditionHeadBranch:
		return c.Value == domain.Wildcard || pr.Head.Ref == c.Value
	default:
		return false
	}
}

// Apply runs each rule's actions in order against the pull request
// identified by (owner, name, number). Setters are idempotent, so
// applying the same rule more than once is harmless.
func Apply(ctx context.Context, store storage.Storage, rulesList []domain.PullRequestRule, owner, name string, number uint64) error {
	for _, rule := range rulesList {
		for _, action := range rule.Actions {
			if err := applyAction(ctx, store, action, owner, name, number); err != nil {
				return err
			}
		}
	}
	return nil
}

func applyAction(ctx context.Context, store storage.Storage, action domain.RuleAction, owner, name string, number uint64) error {
	switch action.Kind {
	case domain.ActionSetAutomerge:
		return store.PullRequestsSetAutomerge(ctx, owner, name, number, action.Bool)
	case domain.ActionSetChecksEnabled:
		return store.PullRequestsSetChecksEnabled(ctx, owner, name, number, action.Bool)
	case domain.ActionSetNeededReviewers:
		return store.PullRequestsSetNeededReviewers(ctx, owner, name, number, action.Count)
	case domain.ActionSetQaStatus:
		return store.PullRequestsSetQAStatus(ctx, owner, name, number, action.QaStatus)
	default:
		return nil
	}
}
