package command

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/sharingcloud/prbot/domain"
	"github.com/sharingcloud/prbot/forgeapi"
	"github.com/sharingcloud/prbot/gif"
	"github.com/sharingcloud/prbot/reviewers"
	"github.com/sharingcloud/prbot/storage"
)

// PermissionClass is the closed set of authorisation levels a command
// may require.
type PermissionClass int

const (
	PermissionPublic PermissionClass = iota
	PermissionWrite
	PermissionAdmin
)

var permissionByAction = map[Action]PermissionClass{
	ActionEnable:            PermissionAdmin,
	ActionDisable:           PermissionAdmin,
	ActionMerge:             PermissionWrite,
	ActionAutomergeEnable:   PermissionWrite,
	ActionAutomergeDisable:  PermissionWrite,
	ActionQAPass:            PermissionWrite,
	ActionQAFail:            PermissionWrite,
	ActionQAQuery:           PermissionWrite,
	ActionSkipQAEnable:      PermissionWrite,
	ActionSkipQADisable:     PermissionWrite,
	ActionChecksEnable:      PermissionWrite,
	ActionChecksDisable:     PermissionWrite,
	ActionLockEnable:        PermissionWrite,
	ActionLockDisable:       PermissionWrite,
	ActionReqAdd:            PermissionWrite,
	ActionReqRemove:         PermissionWrite,
	ActionReviewAdd:         PermissionWrite,
	ActionReviewRemove:      PermissionWrite,
	ActionReviewersCount:    PermissionWrite,
	ActionStrategySet:       PermissionWrite,
	ActionStrategyClear:     PermissionWrite,
	ActionSetTitleRegex:     PermissionWrite,
	ActionHelp:              PermissionPublic,
	ActionPing:              PermissionPublic,
	ActionGif:               PermissionPublic,
	ActionIsAdmin:           PermissionPublic,
	ActionAdminHelp:         PermissionAdmin,
	ActionAdminSync:         PermissionAdmin,
	ActionAdminResetSummary: PermissionAdmin,
	ActionAdminDisable:      PermissionAdmin,
}

// PermissionFor returns the permission class required to run action.
// Unknown actions require no permission: Process skips ActionUnknown
// commands before authorisation.
func PermissionFor(action Action) PermissionClass {
	if p, ok := permissionByAction[action]; ok {
		return p
	}
	return PermissionPublic
}

// ResultActionKind is the closed set of side effects a command's
// execution may request from the caller.
type ResultActionKind int

const (
	ResultPostComment ResultActionKind = iota
	ResultAddReaction
	ResultDeny
)

// ResultAction is one post-action the executor asks the caller to
// apply after a command runs.
type ResultAction struct {
	Kind     ResultActionKind
	Text     string
	Reaction forgeapi.ReactionKind
	Reason   string
}

// ExecutionResult is the outcome of running a single Command.
type ExecutionResult struct {
	ShouldUpdateStatus bool
	Actions            []ResultAction
}

// Context carries everything a single command execution needs.
type Context struct {
	Store         storage.Storage
	Forge         forgeapi.API
	Owner, Name   string
	Number        uint64
	PullRequestID uint64
	AuthorLogin   string
	BotName       string
	Rand          *rand.Rand
}

// Execute runs one already permission-checked Command and returns its
// ExecutionResult.
func Execute(ctx context.Context, cc *Context, cmd Command) (ExecutionResult, error) {
	switch cmd.Action {
	case ActionEnable:
		return statusUpdate(), nil
	case ActionDisable:
		return statusUpdate(), nil
	case ActionMerge:
		strategy := strategyFromArgs(cmd.Args)
		if strategy != nil {
			if err := cc.Store.PullRequestsSetStrategyOverride(ctx, cc.Owner, cc.Name, cc.Number, strategy); err != nil {
				return ExecutionResult{}, err
			}
		}
		return statusUpdate(), nil
	case ActionAutomergeEnable:
		if err := cc.Store.PullRequestsSetAutomerge(ctx, cc.Owner, cc.Name, cc.Number, true); err != nil {
			return ExecutionResult{}, err
		}
		return statusUpdateWithComment("Automerge enabled."), nil
	case ActionAutomergeDisable:
		if err := cc.Store.PullRequestsSetAutomerge(ctx, cc.Owner, cc.Name, cc.Number, false); err != nil {
			return ExecutionResult{}, err
		}
		return statusUpdateWithComment("Automerge disabled."), nil
	case ActionQAPass:
		return setQAStatus(ctx, cc, domain.QaStatusPass)
	case ActionQAFail:
		return setQAStatus(ctx, cc, domain.QaStatusFail)
	case ActionQAQuery:
		return setQAStatus(ctx, cc, domain.QaStatusWaiting)
	case ActionSkipQAEnable:
		return setQAStatus(ctx, cc, domain.QaStatusSkipped)
	case ActionSkipQADisable:
		return setQAStatus(ctx, cc, domain.QaStatusWaiting)
	case ActionChecksEnable:
		if err := cc.Store.PullRequestsSetChecksEnabled(ctx, cc.Owner, cc.Name, cc.Number, true); err != nil {
			return ExecutionResult{}, err
		}
		return statusUpdate(), nil
	case ActionChecksDisable:
		if err := cc.Store.PullRequestsSetChecksEnabled(ctx, cc.Owner, cc.Name, cc.Number, false); err != nil {
			return ExecutionResult{}, err
		}
		return statusUpdate(), nil
	case ActionLockEnable:
		reason := strings.Join(cmd.Args, " ")
		if err := cc.Store.PullRequestsSetLocked(ctx, cc.Owner, cc.Name, cc.Number, true, reason); err != nil {
			return ExecutionResult{}, err
		}
		return statusUpdate(), nil
	case ActionLockDisable:
		if err := cc.Store.PullRequestsSetLocked(ctx, cc.Owner, cc.Name, cc.Number, false, ""); err != nil {
			return ExecutionResult{}, err
		}
		return statusUpdate(), nil
	case ActionReqAdd:
		return addRequiredReviewers(ctx, cc, cmd.Args)
	case ActionReqRemove:
		for _, u := range cmd.Args {
			if err := reviewers.RemoveRequired(ctx, cc.Store, cc.Forge, cc.Owner, cc.Name, cc.Number, cc.PullRequestID, u); err != nil {
				return ExecutionResult{}, err
			}
		}
		return statusUpdate(), nil
	case ActionReviewAdd:
		for _, u := range cmd.Args {
			if err := reviewers.AddOptional(ctx, cc.Forge, cc.Owner, cc.Name, cc.Number, u); err != nil {
				return ExecutionResult{}, err
			}
		}
		return ExecutionResult{}, nil
	case ActionReviewRemove:
		for _, u := range cmd.Args {
			if err := reviewers.RemoveOptional(ctx, cc.Forge, cc.Owner, cc.Name, cc.Number, u); err != nil {
				return ExecutionResult{}, err
			}
		}
		return ExecutionResult{}, nil
	case ActionReviewersCount:
		if len(cmd.Args) == 0 {
			return unknownResult(), nil
		}
		n, err := strconv.ParseUint(cmd.Args[0], 10, 64)
		if err != nil {
			return unknownResult(), nil
		}
		if err := cc.Store.PullRequestsSetNeededReviewers(ctx, cc.Owner, cc.Name, cc.Number, n); err != nil {
			return ExecutionResult{}, err
		}
		return statusUpdate(), nil
	case ActionStrategySet:
		strategy := strategyFromArgs(cmd.Args)
		if strategy == nil {
			return unknownResult(), nil
		}
		if err := cc.Store.PullRequestsSetStrategyOverride(ctx, cc.Owner, cc.Name, cc.Number, strategy); err != nil {
			return ExecutionResult{}, err
		}
		return statusUpdate(), nil
	case ActionStrategyClear:
		if err := cc.Store.PullRequestsSetStrategyOverride(ctx, cc.Owner, cc.Name, cc.Number, nil); err != nil {
			return ExecutionResult{}, err
		}
		return statusUpdate(), nil
	case ActionSetTitleRegex:
		pattern := strings.Join(cmd.Args, " ")
		if _, err := cc.Store.RepositoriesUpdate(ctx, cc.Owner, cc.Name, func(r *domain.Repository) error {
			r.PRTitleValidationRegex = pattern
			return nil
		}); err != nil {
			return ExecutionResult{}, err
		}
		return statusUpdate(), nil
	case ActionHelp, ActionAdminHelp:
		return commentOnly(helpText(cmd.Action == ActionAdminHelp)), nil
	case ActionPing:
		return commentOnly("pong"), nil
	case ActionGif:
		query := strings.Join(cmd.Args, " ")
		r := cc.Rand
		if r == nil {
			r = rand.New(rand.NewSource(1))
		}
		url, err := gif.Random(ctx, cc.Forge, r, query)
		if err != nil {
			return commentOnly("No gif found for `" + query + "`."), nil
		}
		return commentOnly(url), nil
	case ActionIsAdmin:
		account, ok, err := cc.Store.AccountsGet(ctx, cc.AuthorLogin)
		if err != nil {
			return ExecutionResult{}, err
		}
		if ok && account.IsAdmin {
			return commentOnly("You are an admin."), nil
		}
		return commentOnly("You are not an admin."), nil
	case ActionAdminSync:
		return statusUpdate(), nil
	case ActionAdminResetSummary:
		if err := cc.Store.PullRequestsSetStatusCommentID(ctx, cc.Owner, cc.Name, cc.Number, 0); err != nil {
			return ExecutionResult{}, err
		}
		return statusUpdate(), nil
	case ActionAdminDisable:
		if err := cc.Store.RepositoriesDelete(ctx, cc.Owner, cc.Name); err != nil {
			return ExecutionResult{}, err
		}
		return ExecutionResult{}, nil
	default:
		return unknownResult(), nil
	}
}

func addRequiredReviewers(ctx context.Context, cc *Context, usernames []string) (ExecutionResult, error) {
	var approved, rejected []string
	for _, u := range usernames {
		canWrite, err := cc.Forge.IsWriteCollaborator(ctx, cc.Owner, cc.Name, u)
		if err != nil {
			return ExecutionResult{}, err
		}
		if !canWrite {
			rejected = append(rejected, u)
			continue
		}
		if err := reviewers.AddRequired(ctx, cc.Store, cc.Forge, cc.Owner, cc.Name, cc.Number, cc.PullRequestID, u); err != nil {
			return ExecutionResult{}, err
		}
		approved = append(approved, u)
	}

	var comment strings.Builder
	if len(approved) > 0 {
		fmt.Fprintf(&comment, "**%s** now required to review this pull request.", strings.Join(approved, ", "))
	}
	if len(approved) > 0 && len(rejected) > 0 {
		comment.WriteString("\n\nBut ")
	}
	if len(rejected) > 0 {
		fmt.Fprintf(&comment, "**%s** have no write permission on this repository and can't be required reviewers.", strings.Join(rejected, ", "))
	}

	return ExecutionResult{
		ShouldUpdateStatus: len(approved) > 0,
		Actions: []ResultAction{
			{Kind: ResultPostComment, Text: comment.String()},
		},
	}, nil
}

func setQAStatus(ctx context.Context, cc *Context, s domain.QaStatus) (ExecutionResult, error) {
	if err := cc.Store.PullRequestsSetQAStatus(ctx, cc.Owner, cc.Name, cc.Number, s); err != nil {
		return ExecutionResult{}, err
	}
	return statusUpdate(), nil
}

func strategyFromArgs(args []string) *domain.MergeStrategy {
	if len(args) == 0 {
		return nil
	}
	s := domain.MergeStrategy(strings.TrimPrefix(args[0], "+"))
	if !s.Valid() {
		return nil
	}
	return &s
}

func statusUpdate() ExecutionResult {
	return ExecutionResult{ShouldUpdateStatus: true}
}

func statusUpdateWithComment(text string) ExecutionResult {
	return ExecutionResult{
		ShouldUpdateStatus: true,
		Actions:            []ResultAction{{Kind: ResultPostComment, Text: text}},
	}
}

func commentOnly(text string) ExecutionResult {
	return ExecutionResult{Actions: []ResultAction{{Kind: ResultPostComment, Text: text}}}
}

func unknownResult() ExecutionResult {
	return ExecutionResult{}
}

func helpText(admin bool) string {
	if admin {
		return "Admin commands: admin-sync, admin-reset-summary, admin-disable, admin-help, is-admin."
	}
	return "Commands: merge, automerge+/-, qa+/-/?, skip-qa+/-, checks+/-, lock+/- [reason], req+/- <users>, r+/- <users>, reviewers+ <n>, strategy+ <s>, strategy-, set-title-regex <re>, gif <query>, ping, help."
}
