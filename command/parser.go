// Package command implements the bot-command parser and executor.
// The parser is pure and total: any line addressed to the configured
// bot name and carrying an action word yields a Command, and an
// unrecognised action yields
// ActionUnknown rather than a parse error.
package command

import (
	"regexp"
	"strings"
	"unicode"
)

// Action is the closed set of bot-command actions.
type Action string

const (
	ActionEnable           Action = "enable"
	ActionDisable          Action = "disable"
	ActionMerge            Action = "merge"
	ActionAutomergeEnable  Action = "automerge+"
	ActionAutomergeDisable Action = "automerge-"
	ActionQAPass           Action = "qa+"
	ActionQAFail           Action = "qa-"
	ActionQAQuery          Action = "qa?"
	ActionSkipQAEnable     Action = "skip-qa+"
	ActionSkipQADisable    Action = "skip-qa-"
	ActionChecksEnable     Action = "checks+"
	ActionChecksDisable    Action = "checks-"
	ActionLockEnable       Action = "lock+"
	ActionLockDisable      Action = "lock-"
	ActionReqAdd           Action = "req+"
	ActionReqRemove        Action = "req-"
	ActionReviewAdd        Action = "r+"
	ActionReviewRemove     Action = "r-"
	ActionReviewersCount   Action = "reviewers+"
	ActionStrategySet      Action = "strategy+"
	ActionStrategyClear    Action = "strategy-"
	ActionSetTitleRegex    Action = "set-title-regex"
	ActionHelp             Action = "help"
	ActionPing             Action = "ping"
	ActionGif              Action = "gif"
	ActionIsAdmin          Action = "is-admin"
	ActionAdminHelp        Action = "admin-help"
	ActionAdminSync        Action = "admin-sync"
	ActionAdminResetSummary Action = "admin-reset-summary"
	ActionAdminDisable     Action = "admin-disable"
	ActionUnknown          Action = ""
)

var knownActions = map[string]Action{
	"enable":              ActionEnable,
	"disable":             ActionDisable,
	"merge":               ActionMerge,
	"automerge+":          ActionAutomergeEnable,
	"automerge-":          ActionAutomergeDisable,
	"qa+":                 ActionQAPass,
	"qa-":                 ActionQAFail,
	"qa?":                 ActionQAQuery,
	"skip-qa+":            ActionSkipQAEnable,
	"skip-qa-":            ActionSkipQADisable,
	"checks+":             ActionChecksEnable,
	"checks-":             ActionChecksDisable,
	"lock+":               ActionLockEnable,
	"lock-":               ActionLockDisable,
	"req+":                ActionReqAdd,
	"req-":                ActionReqRemove,
	"r+":                  ActionReviewAdd,
	"r-":                  ActionReviewRemove,
	"reviewers+":          ActionReviewersCount,
	"strategy+":           ActionStrategySet,
	"strategy-":           ActionStrategyClear,
	"set-title-regex":     ActionSetTitleRegex,
	"help":                ActionHelp,
	"ping":                ActionPing,
	"gif":                 ActionGif,
	"is-admin":            ActionIsAdmin,
	"admin-help":          ActionAdminHelp,
	"admin-sync":          ActionAdminSync,
	"admin-reset-summary": ActionAdminResetSummary,
	"admin-disable":       ActionAdminDisable,
}

// Command is a single parsed bot-command line.
type Command struct {
	Action Action
	Args   []string
	Raw    string
}

var wsSplit = regexp.MustCompile(`\s+`)

// Parse scans text line by line and returns every line beginning with
// botName followed by whitespace and an action word as a Command.
func Parse(botName, text string) []Command {
	prefix := botName
	var commands []Command
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, prefix) {
			continue
		}
		after := trimmed[len(prefix):]
		if after != "" && !unicode.IsSpace(rune(after[0])) {
			continue
		}
		rest := strings.TrimSpace(after)
		if rest == "" {
			continue
		}
		fields := wsSplit.Split(rest, -1)
		word := fields[0]
		args := fields[1:]

		action, ok := knownActions[word]
		if !ok {
			action = ActionUnknown
		}
		commands = append(commands, Command{Action: action, Args: args, Raw: trimmed})
	}
	return commands
}
