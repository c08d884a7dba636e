package reviewers_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharingcloud/prbot/domain"
	forgememory "github.com/sharingcloud/prbot/forgeapi/memory"
	"github.com/sharingcloud/prbot/reviewers"
	"github.com/sharingcloud/prbot/storage/memory"
)

func TestAddRequiredRecordsAndRequests(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	forge := forgememory.New()

	repo, err := store.RepositoriesCreate(ctx, domain.Repository{Owner: "acme", Name: "widgets"})
	require.NoError(t, err)
	pr, err := store.PullRequestsCreate(ctx, domain.PullRequest{RepositoryID: repo.ID, Number: 1})
	require.NoError(t, err)

	require.NoError(t, reviewers.AddRequired(ctx, store, forge, "acme", "widgets", 1, pr.ID, "alice"))

	list, err := store.RequiredReviewersList(ctx, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, list)
}

func TestRemoveRequiredClearsRecord(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	forge := forgememory.New()

	repo, err := store.RepositoriesCreate(ctx, domain.Repository{Owner: "acme", Name: "widgets"})
	require.NoError(t, err)
	pr, err := store.PullRequestsCreate(ctx, domain.PullRequest{RepositoryID: repo.ID, Number: 1})
	require.NoError(t, err)

	require.NoError(t, reviewers.AddRequired(ctx, store, forge, "acme", "widgets", 1, pr.ID, "alice"))
	require.NoError(t, reviewers.RemoveRequired(ctx, store, forge, "acme", "widgets", 1, pr.ID, "alice"))

	list, err := store.RequiredReviewersList(ctx, pr.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAddOptionalDoesNotTouchRequiredList(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	forge := forgememory.New()

	repo, err := store.RepositoriesCreate(ctx, domain.Repository{Owner: "acme", Name: "widgets"})
	require.NoError(t, err)
	pr, err := store.PullRequestsCreate(ctx, domain.PullRequest{RepositoryID: repo.ID, Number: 1})
	require.NoError(t, err)

	require.NoError(t, reviewers.AddOptional(ctx, forge, "acme", "widgets", 1, "bob"))

	list, err := store.RequiredReviewersList(ctx, pr.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
