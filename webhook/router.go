package webhook

import (
	"bytes"
	"context"
	"io"
	"math/rand"
	"net/http"

	"github.com/google/go-github/v53/github"
	"github.com/sirupsen/logrus"

	"github.com/sharingcloud/prbot/command"
	"github.com/sharingcloud/prbot/domain"
	"github.com/sharingcloud/prbot/forgeapi"
	"github.com/sharingcloud/prbot/reconcile"
	"github.com/sharingcloud/prbot/storage"
)

func readAndRestore(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

// Router dispatches validated webhook deliveries to the appropriate
// per-event-type handler.
type Router struct {
	Store      storage.Storage
	Forge      forgeapi.API
	Reconciler *reconcile.Reconciler
	Authz      command.Authorizer
	BotName    string
	CIAppSlug  string

	// Rand backs the /gif command's random pick; nil falls back to a
	// fixed seed in command.Execute.
	Rand *rand.Rand

	// RepositoryDefaults seeds repositories_get_or_create on first
	// contact with a repository.
	RepositoryDefaults domain.Repository
	// WelcomeComment, if non-empty, is posted once when a pull
	// request is first created.
	WelcomeComment string
}

// ServeHTTP implements the /webhook route: parse, dispatch, 202.
func (router *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	eventType := github.WebHookType(r)
	payload, err := github.ParseWebHook(eventType, body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := router.Dispatch(r.Context(), eventType, payload); err != nil {
		logrus.WithError(err).WithField("event", eventType).Error("webhook handler failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte("accepted"))
}

// Dispatch routes one decoded webhook payload to its handler.
func (router *Router) Dispatch(ctx context.Context, eventType string, payload interface{}) error {
	switch eventType {
	case "ping":
		return nil
	case "pull_request":
		return router.handlePullRequest(ctx, payload.(*github.PullRequestEvent))
	case "pull_request_review":
		return router.handlePullRequestReview(ctx, payload.(*github.PullRequestReviewEvent))
	case "issue_comment":
		return router.handleIssueComment(ctx, payload.(*github.IssueCommentEvent))
	case "check_suite":
		return router.handleCheckSuite(ctx, payload.(*github.CheckSuiteEvent))
	case "check_run":
		return router.handleCheckRun(ctx, payload.(*github.CheckRunEvent))
	case "push":
		return nil
	default:
		return nil
	}
}

var reconcilableActions = map[string]bool{
	"synchronize":          true,
	"reopened":              true,
	"ready_for_review":      true,
	"converted_to_draft":    true,
	"closed":                true,
	"review_requested":      true,
	"review_request_removed": true,
	"edited":                true,
}

func (router *Router) handlePullRequest(ctx context.Context, ev *github.PullRequestEvent) error {
	owner := ev.GetRepo().GetOwner().GetLogin()
	name := ev.GetRepo().GetName()
	number := uint64(ev.GetNumber())

	if ev.GetAction() == "opened" {
		return HandlePullRequestOpened(ctx, router, owner, name, number, ev.GetPullRequest())
	}

	if !reconcilableActions[ev.GetAction()] {
		return nil
	}

	upstream := toUpstreamPullRequest(ev.GetPullRequest())
	_, err := router.Reconciler.Run(ctx, owner, name, number, upstream)
	return err
}

func (router *Router) handlePullRequestReview(ctx context.Context, ev *github.PullRequestReviewEvent) error {
	owner := ev.GetRepo().GetOwner().GetLogin()
	name := ev.GetRepo().GetName()
	number := uint64(ev.GetPullRequest().GetNumber())
	upstream := toUpstreamPullRequest(ev.GetPullRequest())
	_, err := router.Reconciler.Run(ctx, owner, name, number, upstream)
	return err
}

func (router *Router) handleIssueComment(ctx context.Context, ev *github.IssueCommentEvent) error {
	if ev.GetAction() != "created" && ev.GetAction() != "edited" {
		return nil
	}
	if !ev.GetIssue().IsPullRequest() {
		return nil
	}

	owner := ev.GetRepo().GetOwner().GetLogin()
	name := ev.GetRepo().GetName()
	number := uint64(ev.GetIssue().GetNumber())

	cc := &command.Context{
		Store:       router.Store,
		Forge:       router.Forge,
		Owner:       owner,
		Name:        name,
		Number:      number,
		AuthorLogin: ev.GetComment().GetUser().GetLogin(),
		BotName:     router.BotName,
		Rand:        router.Rand,
	}
	pr, err := router.Store.PullRequestsGetExpect(ctx, owner, name, number)
	if err == nil {
		cc.PullRequestID = pr.ID
	}

	shouldReconcile, err := command.Process(ctx, cc, router.Authz, ev.GetComment().GetBody(), uint64(ev.GetComment().GetID()))
	if err != nil {
		return err
	}
	if !shouldReconcile {
		return nil
	}

	upstream, err := router.Forge.PullRequestGet(ctx, owner, name, number)
	if err != nil {
		return err
	}
	_, err = router.Reconciler.Run(ctx, owner, name, number, upstream)
	return err
}

func (router *Router) handleCheckSuite(ctx context.Context, ev *github.CheckSuiteEvent) error {
	return router.reconcileIfHeadKnown(ctx, ev.GetRepo().GetOwner().GetLogin(), ev.GetRepo().GetName(), ev.GetCheckSuite().GetHeadSHA(), ev.GetCheckSuite().GetApp().GetSlug())
}

func (router *Router) handleCheckRun(ctx context.Context, ev *github.CheckRunEvent) error {
	return router.reconcileIfHeadKnown(ctx, ev.GetRepo().GetOwner().GetLogin(), ev.GetRepo().GetName(), ev.GetCheckRun().GetHeadSHA(), ev.GetCheckRun().GetApp().GetSlug())
}

func (router *Router) reconcileIfHeadKnown(ctx context.Context, owner, name, headSHA, appSlug string) error {
	if appSlug != router.CIAppSlug {
		return nil
	}
	prs, err := router.Store.PullRequestsList(ctx, owner, name)
	if err != nil {
		return err
	}
	for _, pr := range prs {
		upstream, err := router.Forge.PullRequestGet(ctx, owner, name, pr.Number)
		if err != nil {
			continue
		}
		if upstream.Head.SHA != headSHA {
			continue
		}
		_, err = router.Reconciler.Run(ctx, owner, name, pr.Number, upstream)
		return err
	}
	return nil
}

func toUpstreamPullRequest(pr *github.PullRequest) forgeapi.PullRequest {
	return forgeapi.PullRequest{
		Number:    uint64(pr.GetNumber()),
		Title:     pr.GetTitle(),
		Body:      pr.GetBody(),
		Draft:     pr.GetDraft(),
		Merged:    pr.GetMerged(),
		Mergeable: pr.Mergeable,
		User:      forgeapi.User{Login: pr.GetUser().GetLogin()},
		Base:      forgeapi.Branch{Ref: pr.GetBase().GetRef(), SHA: pr.GetBase().GetSHA()},
		Head:      forgeapi.Branch{Ref: pr.GetHead().GetRef(), SHA: pr.GetHead().GetSHA()},
	}
}
