// Package reviewers manages the required-reviewer list and the
// corresponding forge review requests for a pull request, used by the
// req+/req-/r+/r- bot commands.
package reviewers

import (
	"context"

	"github.com/sharingcloud/prbot/forgeapi"
	"github.com/sharingcloud/prbot/storage"
)

// AddRequired marks username as a mandatory reviewer for the pull
// request and requests their review on the forge.
func AddRequired(ctx context.Context, store storage.Storage, forge forgeapi.API, owner, name string, number, pullRequestID uint64, username string) error {
	if err := store.RequiredReviewersAdd(ctx, pullRequestID, username); err != nil {
		return err
	}
	return forge.ReviewRequestsAdd(ctx, owner, name, number, []string{username})
}

// RemoveRequired un-marks username as mandatory and withdraws the
// forge review request.
func RemoveRequired(ctx context.Context, store storage.Storage, forge forgeapi.API, owner, name string, number, pullRequestID uint64, username string) error {
	if err := store.RequiredReviewersRemove(ctx, pullRequestID, username); err != nil {
		return err
	}
	return forge.ReviewRequestsRemove(ctx, owner, name, number, []string{username})
}

// AddOptional requests a (non-mandatory) review on the forge without
// touching the required-reviewer list.
func AddOptional(ctx context.Context, forge forgeapi.API, owner, name string, number uint64, username string) error {
	return forge.ReviewRequestsAdd(ctx, owner, name, number, []string{username})
}

// RemoveOptional withdraws a (non-mandatory) review request.
func RemoveOptional(ctx context.Context, forge forgeapi.API, owner, name string, number uint64, username string) error {
	return forge.ReviewRequestsRemove(ctx, owner, name, number, []string{username})
}
