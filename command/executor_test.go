package command_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharingcloud/prbot/command"
	"github.com/sharingcloud/prbot/domain"
	forgememory "github.com/sharingcloud/prbot/forgeapi/memory"
	"github.com/sharingcloud/prbot/storage/memory"
)

func newExecContext(t *testing.T) (*command.Context, *memory.Store, *forgememory.API) {
	t.Helper()
	store := memory.New()
	forge := forgememory.New()
	repo, err := store.RepositoriesCreate(context.Background(), domain.Repository{Owner: "acme", Name: "widgets"})
	require.NoError(t, err)
	pr, err := store.PullRequestsCreate(context.Background(), domain.PullRequest{RepositoryID: repo.ID, Number: 1})
	require.NoError(t, err)
	return &command.Context{
		Store: store, Forge: forge, Owner: "acme", Name: "widgets", Number: 1,
		PullRequestID: pr.ID, AuthorLogin: "alice", BotName: "bot",
	}, store, forge
}

func TestExecuteQAPassSetsStatusAndRequestsReconcile(t *testing.T) {
	cc, store, _ := newExecContext(t)

	result, err := command.Execute(context.Background(), cc, command.Command{Action: command.ActionQAPass})
	require.NoError(t, err)
	assert.True(t, result.ShouldUpdateStatus)

	pr, err := store.PullRequestsGetExpect(context.Background(), "acme", "widgets", 1)
	require.NoError(t, err)
	assert.Equal(t, domain.QaStatusPass, pr.QAStatus)
}

func TestExecuteLockEnableRecordsReason(t *testing.T) {
	cc, store, _ := newExecContext(t)

	_, err := command.Execute(context.Background(), cc, command.Command{Action: command.ActionLockEnable, Args: []string{"waiting", "on", "release"}})
	require.NoError(t, err)

	pr, err := store.PullRequestsGetExpect(context.Background(), "acme", "widgets", 1)
	require.NoError(t, err)
	assert.True(t, pr.Locked)
	assert.Equal(t, "waiting on release", pr.LockReason)
}

func TestExecuteStrategySetRejectsUnknownStrategy(t *testing.T) {
	cc, _, _ := newExecContext(t)

	result, err := command.Execute(context.Background(), cc, command.Command{Action: command.ActionStrategySet, Args: []string{"bogus"}})
	require.NoError(t, err)
	assert.False(t, result.ShouldUpdateStatus)
}

func TestExecuteStrategySetAppliesValidStrategy(t *testing.T) {
	cc, store, _ := newExecContext(t)

	result, err := command.Execute(context.Background(), cc, command.Command{Action: command.ActionStrategySet, Args: []string{"squash"}})
	require.NoError(t, err)
	assert.True(t, result.ShouldUpdateStatus)

	pr, err := store.PullRequestsGetExpect(context.Background(), "acme", "widgets", 1)
	require.NoError(t, err)
	require.NotNil(t, pr.StrategyOverride)
	assert.Equal(t, domain.MergeStrategySquash, *pr.StrategyOverride)
}

func TestExecuteReqAddSplitsApprovedAndRejectedByWritePermission(t *testing.T) {
	cc, store, forge := newExecContext(t)
	forge.SetWriteCollaborator("acme", "widgets", "bob", true)

	result, err := command.Execute(context.Background(), cc, command.Command{Action: command.ActionReqAdd, Args: []string{"bob", "eve"}})
	require.NoError(t, err)
	assert.True(t, result.ShouldUpdateStatus)
	require.Len(t, result.Actions, 1)
	assert.Contains(t, result.Actions[0].Text, "bob")
	assert.Contains(t, result.Actions[0].Text, "eve")

	required, err := store.RequiredReviewersList(context.Background(), cc.PullRequestID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, required)
}

func TestExecuteIsAdminReflectsAccountFlag(t *testing.T) {
	cc, store, _ := newExecContext(t)

	result, err := command.Execute(context.Background(), cc, command.Command{Action: command.ActionIsAdmin})
	require.NoError(t, err)
	assert.Contains(t, result.Actions[0].Text, "not an admin")

	require.NoError(t, store.AccountsSet(context.Background(), domain.Account{Username: "alice", IsAdmin: true}))
	result, err = command.Execute(context.Background(), cc, command.Command{Action: command.ActionIsAdmin})
	require.NoError(t, err)
	assert.Contains(t, result.Actions[0].Text, "You are an admin.")
}

func TestExecuteUnknownActionIsNoop(t *testing.T) {
	cc, _, _ := newExecContext(t)

	result, err := command.Execute(context.Background(), cc, command.Command{Action: command.ActionUnknown})
	require.NoError(t, err)
	assert.False(t, result.ShouldUpdateStatus)
	assert.Empty(t, result.Actions)
}
