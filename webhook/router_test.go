package webhook_test

import (
	"context"
	"testing"

	"github.com/google/go-github/v53/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharingcloud/prbot/command"
	"github.com/sharingcloud/prbot/domain"
	"github.com/sharingcloud/prbot/forgeapi"
	forgememory "github.com/sharingcloud/prbot/forgeapi/memory"
	lockmemory "github.com/sharingcloud/prbot/lock/memory"
	"github.com/sharingcloud/prbot/reconcile"
	"github.com/sharingcloud/prbot/status"
	"github.com/sharingcloud/prbot/storage/memory"
	"github.com/sharingcloud/prbot/webhook"
)

func newRouter(t *testing.T) (*webhook.Router, *memory.Store, *forgememory.API) {
	t.Helper()
	store := memory.New()
	forge := forgememory.New()
	rec := &reconcile.Reconciler{
		Store:  store,
		Forge:  forge,
		Lock:   lockmemory.New(),
		Status: status.Config{CIAppSlug: "ci"},
	}
	router := &webhook.Router{
		Store:      store,
		Forge:      forge,
		Reconciler: rec,
		Authz:      &command.StorageAuthorizer{Accounts: store, Forge: forge},
		BotName:    "bot",
		CIAppSlug:  "ci",
	}
	return router, store, forge
}

func ghRepo(owner, name string) *github.Repository {
	return &github.Repository{
		Owner: &github.User{Login: github.String(owner)},
		Name:  github.String(name),
	}
}

func TestDispatchPullRequestOpenedCreatesAndReconciles(t *testing.T) {
	ctx := context.Background()
	router, store, forge := newRouter(t)

	pr := &github.PullRequest{
		Number: github.Int(1),
		Title:  github.String("Add widget"),
		User:   &github.User{Login: github.String("alice")},
		Base:   &github.PullRequestBranch{Ref: github.String("main")},
		Head:   &github.PullRequestBranch{Ref: github.String("feature"), SHA: github.String("sha1")},
	}
	forge.SetPullRequest("acme", "widgets", forgeapi.PullRequest{Number: 1})

	ev := &github.PullRequestEvent{
		Action:      github.String("opened"),
		Number:      github.Int(1),
		Repo:        ghRepo("acme", "widgets"),
		PullRequest: pr,
	}

	require.NoError(t, router.Dispatch(ctx, "pull_request", ev))

	stored, err := store.PullRequestsGetExpect(ctx, "acme", "widgets", 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stored.Number)

	labels, err := forge.IssueLabelsList(ctx, "acme", "widgets", 1)
	require.NoError(t, err)
	assert.NotEmpty(t, labels)
}

func TestDispatchPullRequestOpenedTwiceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	router, store, forge := newRouter(t)
	forge.SetPullRequest("acme", "widgets", forgeapi.PullRequest{Number: 1})

	ev := &github.PullRequestEvent{
		Action: github.String("opened"),
		Number: github.Int(1),
		Repo:   ghRepo("acme", "widgets"),
		PullRequest: &github.PullRequest{
			Number: github.Int(1),
			User:   &github.User{Login: github.String("alice")},
			Base:   &github.PullRequestBranch{Ref: github.String("main")},
			Head:   &github.PullRequestBranch{Ref: github.String("feature"), SHA: github.String("sha1")},
		},
	}

	require.NoError(t, router.Dispatch(ctx, "pull_request", ev))
	first, err := store.PullRequestsGetExpect(ctx, "acme", "widgets", 1)
	require.NoError(t, err)

	require.NoError(t, router.Dispatch(ctx, "pull_request", ev))
	second, err := store.PullRequestsGetExpect(ctx, "acme", "widgets", 1)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDispatchPullRequestIgnoresUnlistedAction(t *testing.T) {
	ctx := context.Background()
	router, store, _ := newRouter(t)

	ev := &github.PullRequestEvent{
		Action: github.String("labeled"),
		Number: github.Int(1),
		Repo:   ghRepo("acme", "widgets"),
		PullRequest: &github.PullRequest{
			Number: github.Int(1),
		},
	}

	require.NoError(t, router.Dispatch(ctx, "pull_request", ev))
	_, ok, err := store.PullRequestsGet(ctx, "acme", "widgets", 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDispatchIssueCommentExecutesCommandAndReconciles(t *testing.T) {
	ctx := context.Background()
	router, store, forge := newRouter(t)

	repo, err := store.RepositoriesCreate(ctx, domain.Repository{Owner: "acme", Name: "widgets"})
	require.NoError(t, err)
	_, err = store.PullRequestsCreate(ctx, domain.PullRequest{RepositoryID: repo.ID, Number: 1, QAStatus: domain.QaStatusWaiting})
	require.NoError(t, err)
	forge.SetPullRequest("acme", "widgets", forgeapi.PullRequest{
		Number: 1, Title: "Add widget",
		Base: forgeapi.Branch{Ref: "main"}, Head: forgeapi.Branch{Ref: "feature", SHA: "sha1"},
	})
	forge.SetWriteCollaborator("acme", "widgets", "alice", true)

	ev := &github.IssueCommentEvent{
		Action: github.String("created"),
		Repo:   ghRepo("acme", "widgets"),
		Issue: &github.Issue{
			Number:           github.Int(1),
			PullRequestLinks: &github.PullRequestLinks{},
		},
		Comment: &github.IssueComment{
			ID:   github.Int64(42),
			Body: github.String("bot qa+"),
			User: &github.User{Login: github.String("alice")},
		},
	}

	require.NoError(t, router.Dispatch(ctx, "issue_comment", ev))

	pr, err := store.PullRequestsGetExpect(ctx, "acme", "widgets", 1)
	require.NoError(t, err)
	assert.Equal(t, domain.QaStatusPass, pr.QAStatus)
}

func TestDispatchCheckRunReconcilesMatchingPullRequestOnly(t *testing.T) {
	ctx := context.Background()
	router, store, forge := newRouter(t)

	repo, err := store.RepositoriesCreate(ctx, domain.Repository{Owner: "acme", Name: "widgets"})
	require.NoError(t, err)
	_, err = store.PullRequestsCreate(ctx, domain.PullRequest{RepositoryID: repo.ID, Number: 1})
	require.NoError(t, err)
	forge.SetPullRequest("acme", "widgets", forgeapi.PullRequest{Number: 1, Head: forgeapi.Branch{SHA: "sha1"}})

	ev := &github.CheckRunEvent{
		Repo: ghRepo("acme", "widgets"),
		CheckRun: &github.CheckRun{
			HeadSHA: github.String("sha1"),
			App:     &github.App{Slug: github.String("ci")},
		},
	}

	require.NoError(t, router.Dispatch(ctx, "check_run", ev))

	labels, err := forge.IssueLabelsList(ctx, "acme", "widgets", 1)
	require.NoError(t, err)
	assert.NotEmpty(t, labels)
}

func TestDispatchCheckRunIgnoresOtherApps(t *testing.T) {
	ctx := context.Background()
	router, store, forge := newRouter(t)

	repo, err := store.RepositoriesCreate(ctx, domain.Repository{Owner: "acme", Name: "widgets"})
	require.NoError(t, err)
	_, err = store.PullRequestsCreate(ctx, domain.PullRequest{RepositoryID: repo.ID, Number: 1})
	require.NoError(t, err)
	forge.SetPullRequest("acme", "widgets", forgeapi.PullRequest{Number: 1, Head: forgeapi.Branch{SHA: "sha1"}})

	ev := &github.CheckRunEvent{
		Repo: ghRepo("acme", "widgets"),
		CheckRun: &github.CheckRun{
			HeadSHA: github.String("sha1"),
			App:     &github.App{Slug: github.String("some-other-app")},
		},
	}

	require.NoError(t, router.Dispatch(ctx, "check_run", ev))

	labels, err := forge.IssueLabelsList(ctx, "acme", "widgets", 1)
	require.NoError(t, err)
	assert.Empty(t, labels)
}

func TestDispatchPingIsNoop(t *testing.T) {
	router, _, _ := newRouter(t)
	assert.NoError(t, router.Dispatch(context.Background(), "ping", nil))
}
