// Package reconcile implements the reconciliation orchestrator: the
// single entry point that converges forge state (labels, summary
// comment, commit status, automerge) to match persisted state for one
// pull request.
package reconcile

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/sharingcloud/prbot/automerge"
	"github.com/sharingcloud/prbot/commitstatus"
	"github.com/sharingcloud/prbot/domain"
	"github.com/sharingcloud/prbot/forgeapi"
	"github.com/sharingcloud/prbot/lock"
	"github.com/sharingcloud/prbot/status"
	"github.com/sharingcloud/prbot/step"
	"github.com/sharingcloud/prbot/steplabel"
	"github.com/sharingcloud/prbot/storage"
	"github.com/sharingcloud/prbot/summary"
)

// Reconciler wires the capability objects the orchestrator needs.
type Reconciler struct {
	Store  storage.Storage
	Forge  forgeapi.API
	Lock   lock.Lock
	Status status.Config
}

// Run reconciles the pull request identified by (owner, name, number)
// against upstream, the freshly fetched forge snapshot.
func (r *Reconciler) Run(ctx context.Context, owner, name string, number uint64, upstream forgeapi.PullRequest) (domain.PullRequestStatus, error) {
	repo, err := r.Store.RepositoriesGetExpect(ctx, owner, name)
	if err != nil {
		return domain.PullRequestStatus{}, err
	}
	pr, err := r.Store.PullRequestsGetExpect(ctx, owner, name, number)
	if err != nil {
		return domain.PullRequestStatus{}, err
	}

	s, err := status.Build(ctx, r.Store, r.Forge, r.Status, repo, pr, upstream)
	if err != nil {
		return domain.PullRequestStatus{}, err
	}

	desiredStep := step.Choose(s)

	var labelErr, summaryErr, statusErr error
	labelErr = steplabel.Write(ctx, r.Forge, owner, name, number, desiredStep)
	_, summaryErr = summary.CreateOrUpdate(ctx, r.Store, r.Forge, r.Lock, owner, name, number, s)
	statusErr = commitstatus.Publish(ctx, r.Forge, owner, name, upstream.Head.SHA, s)

	if err := firstError(labelErr, summaryErr, statusErr); err != nil {
		return s, err
	}

	if pr.Automerge {
		outcome, err := automerge.Attempt(ctx, r.Forge, r.Lock, owner, name, number, upstream, s, pr.StrategyOverride, func(ctx context.Context, body string) error {
			return postPlainComment(ctx, r.Forge, owner, name, number, body)
		})
		if err != nil {
			return s, err
		}
		if outcome.Result == automerge.Error {
			if err := r.Store.PullRequestsSetAutomerge(ctx, owner, name, number, false); err != nil {
				return s, err
			}
			if _, err := summary.CreateOrUpdate(ctx, r.Store, r.Forge, r.Lock, owner, name, number, s); err != nil {
				return s, err
			}
			logrus.WithFields(logrus.Fields{"owner": owner, "name": name, "number": number}).
				Warn("automerge failed, disabling automerge for this pull request")
		}
	}

	return s, nil
}

func postPlainComment(ctx context.Context, forge forgeapi.API, owner, name string, number uint64, body string) error {
	_, err := forge.CommentsCreate(ctx, owner, name, number, body)
	return err
}

func firstError(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}
