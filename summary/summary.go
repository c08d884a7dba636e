// Package summary maintains the single bot-authored summary comment
// on a pull request. CreateOrUpdate uses a double-checked-locking
// pattern: a cheap path reuses the cached comment id without taking
// the lock, and only comment creation pays the lock's cost.
package summary

import (
	"context"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sharingcloud/prbot/domain"
	"github.com/sharingcloud/prbot/forgeapi"
	"github.com/sharingcloud/prbot/lock"
	"github.com/sharingcloud/prbot/step"
	"github.com/sharingcloud/prbot/storage"
)

const lockTimeout = 10 * time.Second

func lockName(owner, name string, number uint64) string {
	return "summary-" + owner + "-" + name + "-" + strconv.FormatUint(number, 10)
}

// Render produces the comment body for a status. Kept as its own
// function so tests can assert on content without going through the
// forge.
func Render(s domain.PullRequestStatus) string {
	_, _, message := step.GenerateMessage(s)
	return "## Status\n\n" + message
}

// CreateOrUpdate posts or refreshes the summary comment for the pull
// request identified by owner/name/number, returning the (possibly
// unchanged) comment id. It returns 0 without error when another
// replica is concurrently creating the comment.
func CreateOrUpdate(ctx context.Context, store storage.Storage, forge forgeapi.API, l lock.Lock, owner, name string, number uint64, s domain.PullRequestStatus) (uint64, error) {
	pr, err := store.PullRequestsGetExpect(ctx, owner, name, number)
	if err != nil {
		return 0, err
	}

	body := Render(s)

	if pr.StatusCommentID != 0 {
		if err := forge.CommentsUpdate(ctx, owner, name, pr.StatusCommentID, body); err == nil {
			return pr.StatusCommentID, nil
		}
		logrus.WithFields(logrus.Fields{
			"owner": owner, "name": name, "number": number, "comment_id": pr.StatusCommentID,
		}).Info("summary comment missing upstream, recreating")
	}

	handle, alreadyLocked, err := l.WaitLockResource(ctx, lockName(owner, name, number), lockTimeout)
	if err != nil {
		return 0, err
	}
	if alreadyLocked {
		logrus.WithFields(logrus.Fields{"owner": owner, "name": name, "number": number}).
			Warn("summary comment creation already in progress on another replica")
		return 0, nil
	}
	defer handle.Release(ctx)

	pr, err = store.PullRequestsGetExpect(ctx, owner, name, number)
	if err != nil {
		return 0, err
	}
	if pr.StatusCommentID != 0 {
		if err := forge.CommentsUpdate(ctx, owner, name, pr.StatusCommentID, body); err == nil {
			return pr.StatusCommentID, nil
		}
	}

	id, err := forge.CommentsCreate(ctx, owner, name, number, body)
	if err != nil {
		return 0, err
	}
	if err := store.PullRequestsSetStatusCommentID(ctx, owner, name, number, id); err != nil {
		return 0, err
	}
	return id, nil
}

// Delete removes the cached summary comment, ignoring "not found".
func Delete(ctx context.Context, store storage.Storage, forge forgeapi.API, owner, name string, number uint64) error {
	pr, err := store.PullRequestsGetExpect(ctx, owner, name, number)
	if err != nil {
		return err
	}
	if pr.StatusCommentID == 0 {
		return nil
	}
	return forge.CommentsDelete(ctx, owner, name, pr.StatusCommentID)
}
