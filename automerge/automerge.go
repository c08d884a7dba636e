// Package automerge implements the automerge controller: it attempts
// to merge a pull request once it reaches the AwaitingMerge step,
// under a short-lived advisory lock.
package automerge

import (
	"context"
	"strconv"
	"time"

	"github.com/sharingcloud/prbot/domain"
	"github.com/sharingcloud/prbot/forgeapi"
	"github.com/sharingcloud/prbot/lock"
	"github.com/sharingcloud/prbot/step"
)

const lockTimeout = 1000 * time.Millisecond

// Result is the closed set of outcomes a merge attempt may produce.
type Result int

const (
	// NotReady means the pull request is not at the AwaitingMerge step
	// or is already merged; no attempt was made.
	NotReady Result = iota
	// AlreadyLocked means a competing merge attempt holds the lock.
	AlreadyLocked
	// Error means the forge refused the merge.
	Error
	// Success means the merge landed.
	Success
)

func lockName(owner, name string, number uint64) string {
	return "pr-merge-" + owner + "-" + name + "-" + strconv.FormatUint(number, 10)
}

// Outcome reports the result of an automerge attempt plus, on
// Success, the strategy used.
type Outcome struct {
	Result   Result
	Strategy domain.MergeStrategy
}

// PostComment posts a comment about the outcome of an attempt; it is
// a capability the caller supplies so the controller itself stays
// free of forge concerns beyond the merge call.
type PostComment func(ctx context.Context, body string) error

// Attempt runs the automerge controller for one pull request.
// strategyOverride, if non-nil, takes precedence over s.MergeStrategy.
func Attempt(ctx context.Context, forge forgeapi.API, l lock.Lock, owner, name string, number uint64, upstream forgeapi.PullRequest, s domain.PullRequestStatus, strategyOverride *domain.MergeStrategy, postComment PostComment) (Outcome, error) {
	if step.Choose(s) != domain.StepAwaitingMerge || upstream.Merged {
		return Outcome{Result: NotReady}, nil
	}

	handle, alreadyLocked, err := l.WaitLockResource(ctx, lockName(owner, name, number), lockTimeout)
	if err != nil {
		return Outcome{}, err
	}
	if alreadyLocked {
		return Outcome{Result: AlreadyLocked}, nil
	}
	defer handle.Release(ctx)

	strategy := s.MergeStrategy
	if strategyOverride != nil {
		strategy = *strategyOverride
	}

	_, err = forge.PullRequestMerge(ctx, owner, name, number, upstream.Title, "", string(strategy))
	if err != nil {
		if postComment != nil {
			_ = postComment(ctx, "Could not auto-merge this pull request because of an error (strategy: "+string(strategy)+").")
		}
		return Outcome{Result: Error}, nil
	}

	if postComment != nil {
		_ = postComment(ctx, "Automatically merged with strategy `"+string(strategy)+"`. :tada:")
	}
	return Outcome{Result: Success, Strategy: strategy}, nil
}
