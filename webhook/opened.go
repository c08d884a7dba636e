package webhook

import (
	"context"

	"github.com/google/go-github/v53/github"

	"github.com/sharingcloud/prbot/command"
	"github.com/sharingcloud/prbot/domain"
	"github.com/sharingcloud/prbot/rules"
)

// HandlePullRequestOpened gets or creates the repository, creates the
// pull request row if this is its first sighting, reconciles it, and
// applies its body commands and matching rules.
func HandlePullRequestOpened(ctx context.Context, router *Router, owner, name string, number uint64, upstream *github.PullRequest) error {
	repo, err := router.Store.RepositoriesGetOrCreate(ctx, owner, name, router.RepositoryDefaults)
	if err != nil {
		return err
	}

	if _, ok, err := router.Store.PullRequestsGet(ctx, owner, name, number); err != nil {
		return err
	} else if ok {
		return nil
	}

	shouldCreate := true
	if repo.ManualInteraction {
		shouldCreate = bodyRequestsEnable(router.BotName, upstream.GetBody())
	}
	if !shouldCreate {
		return nil
	}

	pr, err := router.Store.PullRequestsCreate(ctx, domain.PullRequest{
		RepositoryID:         repo.ID,
		Number:                number,
		QAStatus:              boolToQAStatus(repo.DefaultEnableQA),
		NeededReviewersCount:  repo.DefaultNeededReviewers,
		ChecksEnabled:         repo.DefaultEnableChecks,
		Automerge:             repo.DefaultAutomerge,
	})
	if err != nil {
		return err
	}

	upstreamPR := toUpstreamPullRequest(upstream)

	if _, err := router.Reconciler.Run(ctx, owner, name, number, upstreamPR); err != nil {
		return err
	}

	if router.WelcomeComment != "" {
		if _, err := router.Forge.CommentsCreate(ctx, owner, name, number, router.WelcomeComment); err != nil {
			return err
		}
	}

	cc := &command.Context{
		Store:         router.Store,
		Forge:         router.Forge,
		Owner:         owner,
		Name:          name,
		Number:        number,
		PullRequestID: pr.ID,
		AuthorLogin:   upstream.GetUser().GetLogin(),
		BotName:       router.BotName,
		Rand:          router.Rand,
	}
	if _, err := command.Process(ctx, cc, router.Authz, upstream.GetBody(), 0); err != nil {
		return err
	}

	matchedRules, err := rules.Resolve(ctx, router.Store, repo.ID, upstreamPR)
	if err != nil {
		return err
	}
	if err := rules.Apply(ctx, router.Store, matchedRules, owner, name, number); err != nil {
		return err
	}

	return nil
}

func bodyRequestsEnable(botName, body string) bool {
	for _, cmd := range command.Parse(botName, body) {
		if cmd.Action == command.ActionEnable {
			return true
		}
	}
	return false
}

func boolToQAStatus(enabled bool) domain.QaStatus {
	if enabled {
		return domain.QaStatusWaiting
	}
	return domain.QaStatusSkipped
}
