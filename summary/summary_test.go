package summary_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharingcloud/prbot/domain"
	forgememory "github.com/sharingcloud/prbot/forgeapi/memory"
	lockmemory "github.com/sharingcloud/prbot/lock/memory"
	"github.com/sharingcloud/prbot/storage/memory"
	"github.com/sharingcloud/prbot/summary"
)

func seedPR(t *testing.T, store *memory.Store) domain.PullRequest {
	t.Helper()
	ctx := context.Background()
	repo, err := store.RepositoriesCreate(ctx, domain.Repository{Owner: "acme", Name: "widgets"})
	require.NoError(t, err)
	pr, err := store.PullRequestsCreate(ctx, domain.PullRequest{RepositoryID: repo.ID, Number: 1})
	require.NoError(t, err)
	return pr
}

func TestRenderIncludesGeneratedMessage(t *testing.T) {
	body := summary.Render(domain.PullRequestStatus{Wip: true})
	assert.Contains(t, body, "PR is still in WIP")
}

func TestCreateOrUpdateCreatesThenReusesCommentID(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	forge := forgememory.New()
	l := lockmemory.New()
	seedPR(t, store)

	id, err := summary.CreateOrUpdate(ctx, store, forge, l, "acme", "widgets", 1, domain.PullRequestStatus{Wip: true})
	require.NoError(t, err)
	require.NotZero(t, id)
	assert.Equal(t, 1, forge.CommentCount())

	id2, err := summary.CreateOrUpdate(ctx, store, forge, l, "acme", "widgets", 1, domain.PullRequestStatus{})
	require.NoError(t, err)
	assert.Equal(t, id, id2)
	assert.Equal(t, 1, forge.CommentCount())

	comment, ok := forge.Comment(id)
	require.True(t, ok)
	assert.Contains(t, comment.Body, "All good.")
}

func TestCreateOrUpdateRecreatesWhenUpstreamCommentMissing(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	forge := forgememory.New()
	l := lockmemory.New()
	seedPR(t, store)

	id, err := summary.CreateOrUpdate(ctx, store, forge, l, "acme", "widgets", 1, domain.PullRequestStatus{Wip: true})
	require.NoError(t, err)
	forge.MissingComments[id] = true

	id2, err := summary.CreateOrUpdate(ctx, store, forge, l, "acme", "widgets", 1, domain.PullRequestStatus{Wip: true})
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)
	assert.Equal(t, 2, forge.CommentCount())
}

func TestDeleteIsNoopWhenNoCommentRecorded(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	forge := forgememory.New()
	seedPR(t, store)

	assert.NoError(t, summary.Delete(ctx, store, forge, "acme", "widgets", 1))
}

func TestDeleteRemovesRecordedComment(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	forge := forgememory.New()
	l := lockmemory.New()
	seedPR(t, store)

	id, err := summary.CreateOrUpdate(ctx, store, forge, l, "acme", "widgets", 1, domain.PullRequestStatus{Wip: true})
	require.NoError(t, err)
	require.NoError(t, summary.Delete(ctx, store, forge, "acme", "widgets", 1))

	_, ok := forge.Comment(id)
	assert.False(t, ok)
}
