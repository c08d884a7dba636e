package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharingcloud/prbot/domain"
	"github.com/sharingcloud/prbot/prerr"
	"github.com/sharingcloud/prbot/storage/memory"
)

func TestRepositoriesCreateRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	_, err := s.RepositoriesCreate(ctx, domain.Repository{Owner: "acme", Name: "widgets"})
	require.NoError(t, err)

	_, err = s.RepositoriesCreate(ctx, domain.Repository{Owner: "acme", Name: "widgets"})
	kind, ok := prerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, prerr.KindReferentialIntegrity, kind)
}

func TestRepositoriesGetOrCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	defaults := domain.Repository{DefaultStrategy: domain.MergeStrategySquash}

	first, err := s.RepositoriesGetOrCreate(ctx, "acme", "widgets", defaults)
	require.NoError(t, err)
	assert.Equal(t, domain.MergeStrategySquash, first.DefaultStrategy)

	second, err := s.RepositoriesGetOrCreate(ctx, "acme", "widgets", domain.Repository{DefaultStrategy: domain.MergeStrategyRebase})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, domain.MergeStrategySquash, second.DefaultStrategy)
}

func TestPullRequestsCreateRejectsUnknownRepository(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	_, err := s.PullRequestsCreate(ctx, domain.PullRequest{RepositoryID: 999, Number: 1})
	kind, ok := prerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, prerr.KindReferentialIntegrity, kind)
}

func TestPullRequestsGetExpectReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	_, err := s.PullRequestsGetExpect(ctx, "acme", "widgets", 1)
	assert.True(t, prerr.IsNotFound(err))
}

func TestRepositoriesDeleteCascadesPullRequestsAndRules(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	repo, err := s.RepositoriesCreate(ctx, domain.Repository{Owner: "acme", Name: "widgets"})
	require.NoError(t, err)
	pr, err := s.PullRequestsCreate(ctx, domain.PullRequest{RepositoryID: repo.ID, Number: 1})
	require.NoError(t, err)
	require.NoError(t, s.RequiredReviewersAdd(ctx, pr.ID, "alice"))
	require.NoError(t, s.MergeRulesSet(ctx, domain.MergeRule{RepositoryID: repo.ID, BaseBranch: "main", HeadBranch: "*"}))

	require.NoError(t, s.RepositoriesDelete(ctx, "acme", "widgets"))

	_, err = s.PullRequestsGetExpect(ctx, "acme", "widgets", 1)
	assert.True(t, prerr.IsNotFound(err))

	rules, err := s.MergeRulesList(ctx, repo.ID)
	require.NoError(t, err)
	assert.Empty(t, rules)

	revs, err := s.RequiredReviewersList(ctx, pr.ID)
	require.NoError(t, err)
	assert.Empty(t, revs)
}

func TestPullRequestMutatorsUpdateTargetedField(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	repo, err := s.RepositoriesCreate(ctx, domain.Repository{Owner: "acme", Name: "widgets"})
	require.NoError(t, err)
	_, err = s.PullRequestsCreate(ctx, domain.PullRequest{RepositoryID: repo.ID, Number: 1})
	require.NoError(t, err)

	require.NoError(t, s.PullRequestsSetLocked(ctx, "acme", "widgets", 1, true, "manual hold"))
	require.NoError(t, s.PullRequestsSetAutomerge(ctx, "acme", "widgets", 1, true))
	require.NoError(t, s.PullRequestsSetQAStatus(ctx, "acme", "widgets", 1, domain.QaStatusFail))

	pr, err := s.PullRequestsGetExpect(ctx, "acme", "widgets", 1)
	require.NoError(t, err)
	assert.True(t, pr.Locked)
	assert.Equal(t, "manual hold", pr.LockReason)
	assert.True(t, pr.Automerge)
	assert.Equal(t, domain.QaStatusFail, pr.QAStatus)
}

func TestExternalAccountRightsRequireKnownAccountAndRepository(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	repo, err := s.RepositoriesCreate(ctx, domain.Repository{Owner: "acme", Name: "widgets"})
	require.NoError(t, err)

	err = s.ExternalAccountRightsAdd(ctx, domain.ExternalAccountRight{Username: "ci-bot", RepositoryID: repo.ID})
	kind, ok := prerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, prerr.KindReferentialIntegrity, kind)

	require.NoError(t, s.ExternalAccountsSet(ctx, domain.ExternalAccount{Username: "ci-bot"}))
	require.NoError(t, s.ExternalAccountRightsAdd(ctx, domain.ExternalAccountRight{Username: "ci-bot", RepositoryID: repo.ID}))

	has, err := s.ExternalAccountHasRight(ctx, "ci-bot", repo.ID)
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, s.ExternalAccountRightsRemove(ctx, "ci-bot", repo.ID))
	has, err = s.ExternalAccountHasRight(ctx, "ci-bot", repo.ID)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestRequiredReviewersRemoveUnknownReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	repo, err := s.RepositoriesCreate(ctx, domain.Repository{Owner: "acme", Name: "widgets"})
	require.NoError(t, err)
	pr, err := s.PullRequestsCreate(ctx, domain.PullRequest{RepositoryID: repo.ID, Number: 1})
	require.NoError(t, err)

	err = s.RequiredReviewersRemove(ctx, pr.ID, "nobody")
	assert.True(t, prerr.IsNotFound(err))
}
