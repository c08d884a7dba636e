package command_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharingcloud/prbot/command"
)

func TestParseIgnoresLinesNotAddressedToBot(t *testing.T) {
	cmds := command.Parse("bot", "just a regular comment\nbot qa+")
	require.Len(t, cmds, 1)
	assert.Equal(t, command.ActionQAPass, cmds[0].Action)
}

func TestParseCollectsArgs(t *testing.T) {
	cmds := command.Parse("bot", "bot strategy+ squash")
	require.Len(t, cmds, 1)
	assert.Equal(t, command.ActionStrategySet, cmds[0].Action)
	assert.Equal(t, []string{"squash"}, cmds[0].Args)
}

func TestParseUnknownWordYieldsActionUnknownNotError(t *testing.T) {
	cmds := command.Parse("bot", "bot frobnicate")
	require.Len(t, cmds, 1)
	assert.Equal(t, command.ActionUnknown, cmds[0].Action)
}

func TestParseHandlesMultipleLines(t *testing.T) {
	cmds := command.Parse("bot", "bot qa+\nbot merge\nnot for the bot")
	require.Len(t, cmds, 2)
	assert.Equal(t, command.ActionQAPass, cmds[0].Action)
	assert.Equal(t, command.ActionMerge, cmds[1].Action)
}

func TestParseIgnoresEmptyAddressedLine(t *testing.T) {
	cmds := command.Parse("bot", "bot")
	assert.Empty(t, cmds)
}

func TestParseRequiresWhitespaceAfterBotName(t *testing.T) {
	cmds := command.Parse("bot", "botqa+\nrobot qa+")
	assert.Empty(t, cmds)
}
