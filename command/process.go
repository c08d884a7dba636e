package command

import (
	"context"

	"github.com/sharingcloud/prbot/domain"
	"github.com/sharingcloud/prbot/forgeapi"
)

// Authorizer answers whether an author may run a permission-classed
// command; it is the caller's responsibility to wire it to storage
// (admin accounts) and the forge (write-collaborator check).
type Authorizer interface {
	Allows(ctx context.Context, class PermissionClass, owner, name, authorLogin string) (bool, error)
}

// Process parses text for bot commands addressed to cc.BotName,
// authorises and executes each one, applies the resulting reactions
// and comments through forge, and reports whether the caller should
// run reconciliation afterwards.
//
// sourceCommentID is the forge comment id that reactions should be
// applied to; pass 0 to skip reactions (e.g. a
// command embedded in the pull-request body, which has no comment
// id to react to).
func Process(ctx context.Context, cc *Context, authz Authorizer, text string, sourceCommentID uint64) (shouldReconcile bool, err error) {
	commands := Parse(cc.BotName, text)

	for _, cmd := range commands {
		if cmd.Action == ActionUnknown {
			continue
		}

		class := PermissionFor(cmd.Action)
		allowed, err := authz.Allows(ctx, class, cc.Owner, cc.Name, cc.AuthorLogin)
		if err != nil {
			return shouldReconcile, err
		}
		if !allowed {
			if sourceCommentID != 0 {
				_ = cc.Forge.CommentReactionAdd(ctx, cc.Owner, cc.Name, sourceCommentID, forgeapi.ReactionThumbsDown)
			}
			continue
		}

		result, err := Execute(ctx, cc, cmd)
		if err != nil {
			return shouldReconcile, err
		}

		if sourceCommentID != 0 {
			_ = cc.Forge.CommentReactionAdd(ctx, cc.Owner, cc.Name, sourceCommentID, forgeapi.ReactionEyes)
		}
		for _, action := range result.Actions {
			if action.Kind == ResultPostComment && action.Text != "" {
				_, _ = cc.Forge.CommentsCreate(ctx, cc.Owner, cc.Name, cc.Number, action.Text)
			}
		}
		if result.ShouldUpdateStatus {
			shouldReconcile = true
		}
	}

	return shouldReconcile, nil
}

// StorageAuthorizer is the production Authorizer: write class is
// checked against the forge's collaborator permissions, admin class
// against the persisted Account.IsAdmin flag.
type StorageAuthorizer struct {
	Accounts interface {
		AccountsGet(ctx context.Context, username string) (domain.Account, bool, error)
	}
	Forge forgeapi.API
}

func (a *StorageAuthorizer) Allows(ctx context.Context, class PermissionClass, owner, name, authorLogin string) (bool, error) {
	switch class {
	case PermissionPublic:
		return true, nil
	case PermissionWrite:
		return a.Forge.IsWriteCollaborator(ctx, owner, name, authorLogin)
	case PermissionAdmin:
		account, ok, err := a.Accounts.AccountsGet(ctx, authorLogin)
		if err != nil {
			return false, err
		}
		return ok && account.IsAdmin, nil
	default:
		return false, nil
	}
}
