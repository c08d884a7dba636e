// Package storage defines the narrow capability surface over the
// bot's persisted entities. Every operation is
// fallible with a typed error from prerr; "_get" operations return
// (zero, false, nil) on "not found" while "_get_expect" operations
// return a prerr NotFound error instead.
package storage

import (
	"context"

	"github.com/sharingcloud/prbot/domain"
)

// Storage is the capability object the core uses for all persistence.
// It is narrow enough to be satisfied by an in-memory fake for tests
// (storage/memory).
type Storage interface {
	// Repositories.
	RepositoriesCreate(ctx context.Context, r domain.Repository) (domain.Repository, error)
	RepositoriesGet(ctx context.Context, owner, name string) (domain.Repository, bool, error)
	RepositoriesGetExpect(ctx context.Context, owner, name string) (domain.Repository, error)
	RepositoriesGetOrCreate(ctx context.Context, owner, name string, defaults domain.Repository) (domain.Repository, error)
	RepositoriesUpdate(ctx context.Context, owner, name string, mutate func(*domain.Repository) error) (domain.Repository, error)
	RepositoriesDelete(ctx context.Context, owner, name string) error
	RepositoriesAll(ctx context.Context) ([]domain.Repository, error)

	// Pull requests.
	PullRequestsCreate(ctx context.Context, pr domain.PullRequest) (domain.PullRequest, error)
	PullRequestsGet(ctx context.Context, owner, name string, number uint64) (domain.PullRequest, bool, error)
	PullRequestsGetExpect(ctx context.Context, owner, name string, number uint64) (domain.PullRequest, error)
	PullRequestsList(ctx context.Context, owner, name string) ([]domain.PullRequest, error)
	PullRequestsSetStatusCommentID(ctx context.Context, owner, name string, number, commentID uint64) error
	PullRequestsSetQAStatus(ctx context.Context, owner, name string, number uint64, status domain.QaStatus) error
	PullRequestsSetChecksEnabled(ctx context.Context, owner, name string, number uint64, enabled bool) error
	PullRequestsSetAutomerge(ctx context.Context, owner, name string, number uint64, automerge bool) error
	PullRequestsSetNeededReviewers(ctx context.Context, owner, name string, number uint64, count uint64) error
	PullRequestsSetLocked(ctx context.Context, owner, name string, number uint64, locked bool, reason string) error
	PullRequestsSetStrategyOverride(ctx context.Context, owner, name string, number uint64, strategy *domain.MergeStrategy) error

	// Merge rules.
	MergeRulesGet(ctx context.Context, repositoryID uint64, base, head string) (domain.MergeRule, bool, error)
	MergeRulesSet(ctx context.Context, rule domain.MergeRule) error
	MergeRulesDelete(ctx context.Context, repositoryID uint64, base, head string) error
	MergeRulesList(ctx context.Context, repositoryID uint64) ([]domain.MergeRule, error)

	// Pull-request rules.
	PullRequestRulesGet(ctx context.Context, repositoryID uint64, name string) (domain.PullRequestRule, bool, error)
	PullRequestRulesSet(ctx context.Context, rule domain.PullRequestRule) error
	PullRequestRulesDelete(ctx context.Context, repositoryID uint64, name string) error
	PullRequestRulesList(ctx context.Context, repositoryID uint64) ([]domain.PullRequestRule, error)

	// Accounts.
	AccountsGet(ctx context.Context, username string) (domain.Account, bool, error)
	AccountsSet(ctx context.Context, account domain.Account) error
	AccountsAll(ctx context.Context) ([]domain.Account, error)

	// External accounts.
	ExternalAccountsGet(ctx context.Context, username string) (domain.ExternalAccount, bool, error)
	ExternalAccountsSet(ctx context.Context, account domain.ExternalAccount) error
	ExternalAccountsAll(ctx context.Context) ([]domain.ExternalAccount, error)
	ExternalAccountRightsAdd(ctx context.Context, right domain.ExternalAccountRight) error
	ExternalAccountRightsRemove(ctx context.Context, username string, repositoryID uint64) error
	ExternalAccountRightsList(ctx context.Context, username string) ([]domain.ExternalAccountRight, error)
	ExternalAccountHasRight(ctx context.Context, username string, repositoryID uint64) (bool, error)

	// Required reviewers.
	RequiredReviewersAdd(ctx context.Context, pullRequestID uint64, username string) error
	RequiredReviewersRemove(ctx context.Context, pullRequestID uint64, username string) error
	RequiredReviewersList(ctx context.Context, pullRequestID uint64) ([]string, error)
}
