package steplabel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharingcloud/prbot/domain"
	forgememory "github.com/sharingcloud/prbot/forgeapi/memory"
	"github.com/sharingcloud/prbot/steplabel"
)

func TestWriteAddsLabelWhenNoneExists(t *testing.T) {
	forge := forgememory.New()
	require.NoError(t, forge.IssueLabelsReplaceAll(context.Background(), "acme", "widgets", 1, []string{"bug"}))

	require.NoError(t, steplabel.Write(context.Background(), forge, "acme", "widgets", 1, domain.StepAwaitingMerge))

	labels, err := forge.IssueLabelsList(context.Background(), "acme", "widgets", 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bug", domain.StepAwaitingMerge.String()}, labels)
}

func TestWriteReplacesExistingStepLabel(t *testing.T) {
	forge := forgememory.New()
	require.NoError(t, forge.IssueLabelsReplaceAll(context.Background(), "acme", "widgets", 1, []string{domain.StepWip.String(), "bug"}))

	require.NoError(t, steplabel.Write(context.Background(), forge, "acme", "widgets", 1, domain.StepLocked))

	labels, err := forge.IssueLabelsList(context.Background(), "acme", "widgets", 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bug", domain.StepLocked.String()}, labels)
}

func TestWriteIsNoopWhenDesiredSetAlreadyMatches(t *testing.T) {
	forge := forgememory.New()
	require.NoError(t, forge.IssueLabelsReplaceAll(context.Background(), "acme", "widgets", 1, []string{domain.StepLocked.String(), "bug"}))

	require.NoError(t, steplabel.Write(context.Background(), forge, "acme", "widgets", 1, domain.StepLocked))

	labels, err := forge.IssueLabelsList(context.Background(), "acme", "widgets", 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bug", domain.StepLocked.String()}, labels)
}

func TestWriteRemovesStepLabelWhenDesiredIsEmpty(t *testing.T) {
	forge := forgememory.New()
	require.NoError(t, forge.IssueLabelsReplaceAll(context.Background(), "acme", "widgets", 1, []string{domain.StepWip.String(), "bug"}))

	require.NoError(t, steplabel.Write(context.Background(), forge, "acme", "widgets", 1, ""))

	labels, err := forge.IssueLabelsList(context.Background(), "acme", "widgets", 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bug"}, labels)
}
