package status_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharingcloud/prbot/domain"
	"github.com/sharingcloud/prbot/forgeapi"
	forgememory "github.com/sharingcloud/prbot/forgeapi/memory"
	"github.com/sharingcloud/prbot/status"
	"github.com/sharingcloud/prbot/storage/memory"
)

func conclusion(c forgeapi.CheckConclusion) *forgeapi.CheckConclusion { return &c }

func TestBuildAggregatesChecksReviewsAndStrategy(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	forge := forgememory.New()

	repo, err := store.RepositoriesCreate(ctx, domain.Repository{
		Owner: "acme", Name: "widgets", DefaultStrategy: domain.MergeStrategyMerge,
	})
	require.NoError(t, err)

	pr, err := store.PullRequestsCreate(ctx, domain.PullRequest{
		RepositoryID: repo.ID, Number: 42, ChecksEnabled: true, QAStatus: domain.QaStatusPass,
	})
	require.NoError(t, err)

	require.NoError(t, store.RequiredReviewersAdd(ctx, pr.ID, "alice"))

	require.NoError(t, store.MergeRulesSet(ctx, domain.MergeRule{
		RepositoryID: repo.ID, BaseBranch: "main", HeadBranch: domain.Wildcard, Strategy: domain.MergeStrategySquash,
	}))

	upstream := forgeapi.PullRequest{
		Number: 42,
		Title:  "Add widget",
		Base:   forgeapi.Branch{Ref: "main"},
		Head:   forgeapi.Branch{Ref: "feature", SHA: "sha123"},
	}

	forge.SetCheckRuns("acme", "widgets", 42, []forgeapi.CheckRun{
		{Name: "build", Conclusion: conclusion(forgeapi.CheckConclusionSuccess), App: forgeapi.Application{Slug: "ci"}, StartedAt: time.Now()},
	})
	forge.SetReviews("acme", "widgets", 42, []forgeapi.Review{
		{User: forgeapi.User{Login: "alice"}, State: forgeapi.ReviewStateApproved, SubmittedAt: time.Now()},
		{User: forgeapi.User{Login: "bob"}, State: forgeapi.ReviewStateChangesRequested, SubmittedAt: time.Now()},
	})

	cfg := status.Config{CIAppSlug: "ci", ForgeHost: "github.com"}
	result, err := status.Build(ctx, store, forge, cfg, repo, pr, upstream)
	require.NoError(t, err)

	assert.Equal(t, domain.ChecksStatusPass, result.ChecksStatus)
	assert.Equal(t, domain.MergeStrategySquash, result.MergeStrategy)
	assert.Equal(t, []string{"alice"}, result.ApprovedReviewers)
	assert.Equal(t, []string{"bob"}, result.ChangesRequiredReviewers)
	assert.Empty(t, result.MissingRequiredReviewers)
	assert.True(t, result.Mergeable)
	assert.True(t, result.ValidPRTitle)
	assert.Equal(t, "https://github.com/acme/widgets/pull/42/checks", result.ChecksURL)
}

func TestBuildSkipsChecksWhenDisabled(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	forge := forgememory.New()

	repo, err := store.RepositoriesCreate(ctx, domain.Repository{Owner: "acme", Name: "widgets"})
	require.NoError(t, err)
	pr, err := store.PullRequestsCreate(ctx, domain.PullRequest{RepositoryID: repo.ID, Number: 1, ChecksEnabled: false})
	require.NoError(t, err)

	result, err := status.Build(ctx, store, forge, status.Config{}, repo, pr, forgeapi.PullRequest{Number: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.ChecksStatusSkipped, result.ChecksStatus)
}

func TestBuildDedupesCheckRunsBySameNameKeepingLatestStartedAt(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	forge := forgememory.New()

	repo, err := store.RepositoriesCreate(ctx, domain.Repository{Owner: "acme", Name: "widgets"})
	require.NoError(t, err)
	pr, err := store.PullRequestsCreate(ctx, domain.PullRequest{RepositoryID: repo.ID, Number: 1, ChecksEnabled: true})
	require.NoError(t, err)

	now := time.Now()
	forge.SetCheckRuns("acme", "widgets", 1, []forgeapi.CheckRun{
		{Name: "build", Conclusion: conclusion(forgeapi.CheckConclusionFailure), App: forgeapi.Application{Slug: "ci"}, StartedAt: now.Add(-time.Hour)},
		{Name: "build", Conclusion: conclusion(forgeapi.CheckConclusionSuccess), App: forgeapi.Application{Slug: "ci"}, StartedAt: now},
	})

	cfg := status.Config{CIAppSlug: "ci"}
	result, err := status.Build(ctx, store, forge, cfg, repo, pr, forgeapi.PullRequest{Number: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.ChecksStatusPass, result.ChecksStatus, "only the later-started run should contribute")
}

func TestBuildWaitsForInitialChecksWhenNoRunsYetExist(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	forge := forgememory.New()

	repo, err := store.RepositoriesCreate(ctx, domain.Repository{Owner: "acme", Name: "widgets"})
	require.NoError(t, err)
	pr, err := store.PullRequestsCreate(ctx, domain.PullRequest{RepositoryID: repo.ID, Number: 1, ChecksEnabled: true})
	require.NoError(t, err)

	cfg := status.Config{CIAppSlug: "ci", WaitForInitialChecks: true}
	result, err := status.Build(ctx, store, forge, cfg, repo, pr, forgeapi.PullRequest{Number: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.ChecksStatusWaiting, result.ChecksStatus)
}

func TestBuildSkipsWhenNoRunEverSucceeds(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	forge := forgememory.New()

	repo, err := store.RepositoriesCreate(ctx, domain.Repository{Owner: "acme", Name: "widgets"})
	require.NoError(t, err)
	pr, err := store.PullRequestsCreate(ctx, domain.PullRequest{RepositoryID: repo.ID, Number: 1, ChecksEnabled: true})
	require.NoError(t, err)

	forge.SetCheckRuns("acme", "widgets", 1, []forgeapi.CheckRun{
		{Name: "lint", Conclusion: conclusion(forgeapi.CheckConclusionNeutral), App: forgeapi.Application{Slug: "ci"}, StartedAt: time.Now()},
		{Name: "docs", Conclusion: conclusion(forgeapi.CheckConclusionSkipped), App: forgeapi.Application{Slug: "ci"}, StartedAt: time.Now()},
	})

	cfg := status.Config{CIAppSlug: "ci"}
	result, err := status.Build(ctx, store, forge, cfg, repo, pr, forgeapi.PullRequest{Number: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.ChecksStatusSkipped, result.ChecksStatus)
}

func TestBuildInvalidTitleRegexFails(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	forge := forgememory.New()

	repo, err := store.RepositoriesCreate(ctx, domain.Repository{
		Owner: "acme", Name: "widgets", PRTitleValidationRegex: "[",
	})
	require.NoError(t, err)
	pr, err := store.PullRequestsCreate(ctx, domain.PullRequest{RepositoryID: repo.ID, Number: 1})
	require.NoError(t, err)

	_, err = status.Build(ctx, store, forge, status.Config{}, repo, pr, forgeapi.PullRequest{Number: 1, Title: "x"})
	assert.Error(t, err)
}
