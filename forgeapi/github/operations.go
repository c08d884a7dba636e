package github

import (
	"context"

	"github.com/google/go-github/v53/github"

	"github.com/sharingcloud/prbot/forgeapi"
	"github.com/sharingcloud/prbot/prerr"
)

func (c *Client) PullRequestGet(ctx context.Context, owner, name string, number uint64) (forgeapi.PullRequest, error) {
	c.count()
	pr, _, err := c.gh.PullRequests.Get(ctx, owner, name, int(number))
	if err != nil {
		return forgeapi.PullRequest{}, prerr.ForgeAPI(0, err.Error())
	}
	return toPullRequest(pr), nil
}

func (c *Client) PullRequestMerge(ctx context.Context, owner, name string, number uint64, commitTitle, commitMessage string, strategy string) (forgeapi.MergeResult, error) {
	c.count()
	result, _, err := c.gh.PullRequests.Merge(ctx, owner, name, int(number), commitMessage, &github.PullRequestOptions{
		CommitTitle: commitTitle,
		MergeMethod: strategy,
	})
	if err != nil {
		return forgeapi.MergeResult{}, prerr.Merge(err.Error(), nil)
	}
	return forgeapi.MergeResult{SHA: result.GetSHA(), Merged: result.GetMerged()}, nil
}

func (c *Client) CheckRunsList(ctx context.Context, owner, name, sha string) ([]forgeapi.CheckRun, error) {
	c.count()
	result, _, err := c.gh.Checks.ListCheckRunsForRef(ctx, owner, name, sha, nil)
	if err != nil {
		return nil, prerr.ForgeAPI(0, err.Error())
	}
	out := make([]forgeapi.CheckRun, 0, len(result.CheckRuns))
	for _, run := range result.CheckRuns {
		out = append(out, toCheckRun(run))
	}
	return out, nil
}

func (c *Client) ReviewsList(ctx context.Context, owner, name string, number uint64) ([]forgeapi.Review, error) {
	c.count()
	reviews, _, err := c.gh.PullRequests.ListReviews(ctx, owner, name, int(number), nil)
	if err != nil {
		return nil, prerr.ForgeAPI(0, err.Error())
	}
	out := make([]forgeapi.Review, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, toReview(r))
	}
	return out, nil
}

func (c *Client) ReviewRequestsAdd(ctx context.Context, owner, name string, number uint64, logins []string) error {
	c.count()
	_, _, err := c.gh.PullRequests.RequestReviewers(ctx, owner, name, int(number), github.ReviewersRequest{Reviewers: logins})
	if err != nil {
		return prerr.ForgeAPI(0, err.Error())
	}
	return nil
}

func (c *Client) ReviewRequestsRemove(ctx context.Context, owner, name string, number uint64, logins []string) error {
	c.count()
	_, err := c.gh.PullRequests.RemoveReviewers(ctx, owner, name, int(number), github.ReviewersRequest{Reviewers: logins})
	if err != nil {
		return prerr.ForgeAPI(0, err.Error())
	}
	return nil
}

func (c *Client) CombinedStatusGet(ctx context.Context, owner, name, sha string) (forgeapi.CombinedStatus, error) {
	c.count()
	combined, _, err := c.gh.Repositories.GetCombinedStatus(ctx, owner, name, sha, nil)
	if err != nil {
		return forgeapi.CombinedStatus{}, prerr.ForgeAPI(0, err.Error())
	}
	statuses := map[string]forgeapi.StatusEntry{}
	for _, s := range combined.Statuses {
		statuses[s.GetContext()] = forgeapi.StatusEntry{
			State:   s.GetState(),
			Context: s.GetContext(),
			Desc:    s.GetDescription(),
		}
	}
	return forgeapi.CombinedStatus{Statuses: statuses}, nil
}

func (c *Client) StatusCreate(ctx context.Context, owner, name, sha, state, context_, description, targetURL string) error {
	c.count()
	_, _, err := c.gh.Repositories.CreateStatus(ctx, owner, name, sha, &github.RepoStatus{
		State:       &state,
		Context:     &context_,
		Description: &description,
		TargetURL:   &targetURL,
	})
	if err != nil {
		return prerr.ForgeAPI(0, err.Error())
	}
	return nil
}

func (c *Client) IssueLabelsList(ctx context.Context, owner, name string, number uint64) ([]string, error) {
	c.count()
	labels, _, err := c.gh.Issues.ListLabelsByIssue(ctx, owner, name, int(number), nil)
	if err != nil {
		return nil, prerr.ForgeAPI(0, err.Error())
	}
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		out = append(out, l.GetName())
	}
	return out, nil
}

func (c *Client) IssueLabelsReplaceAll(ctx context.Context, owner, name string, number uint64, labels []string) error {
	c.count()
	_, _, err := c.gh.Issues.ReplaceLabelsForIssue(ctx, owner, name, int(number), labels)
	if err != nil {
		return prerr.ForgeAPI(0, err.Error())
	}
	return nil
}

func (c *Client) CommentsCreate(ctx context.Context, owner, name string, number uint64, body string) (uint64, error) {
	c.count()
	comment, _, err := c.gh.Issues.CreateComment(ctx, owner, name, int(number), &github.IssueComment{Body: &body})
	if err != nil {
		return 0, prerr.ForgeAPI(0, err.Error())
	}
	return uint64(comment.GetID()), nil
}

func (c *Client) CommentsUpdate(ctx context.Context, owner, name string, commentID uint64, body string) error {
	c.count()
	_, _, err := c.gh.Issues.EditComment(ctx, owner, name, int64(commentID), &github.IssueComment{Body: &body})
	if err != nil {
		if isNotFound(err) {
			return prerr.NotFound("comment", err)
		}
		return prerr.ForgeAPI(0, err.Error())
	}
	return nil
}

func (c *Client) CommentsDelete(ctx context.Context, owner, name string, commentID uint64) error {
	c.count()
	_, err := c.gh.Issues.DeleteComment(ctx, owner, name, int64(commentID))
	if err != nil {
		if isNotFound(err) {
			return nil // already gone upstream
		}
		return prerr.ForgeAPI(0, err.Error())
	}
	return nil
}

func (c *Client) CommentReactionAdd(ctx context.Context, owner, name string, commentID uint64, reaction forgeapi.ReactionKind) error {
	c.count()
	_, _, err := c.gh.Reactions.CreateIssueCommentReaction(ctx, owner, name, int64(commentID), string(reaction))
	if err != nil {
		return prerr.ForgeAPI(0, err.Error())
	}
	return nil
}

func (c *Client) IsWriteCollaborator(ctx context.Context, owner, name, login string) (bool, error) {
	c.count()
	perm, _, err := c.gh.Repositories.GetPermissionLevel(ctx, owner, name, login)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, prerr.ForgeAPI(0, err.Error())
	}
	switch perm.GetPermission() {
	case "admin", "write":
		return true, nil
	default:
		return false, nil
	}
}

func isNotFound(err error) bool {
	if ghErr, ok := err.(*github.ErrorResponse); ok {
		return ghErr.Response != nil && ghErr.Response.StatusCode == 404
	}
	return false
}

func toPullRequest(pr *github.PullRequest) forgeapi.PullRequest {
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

func toCheckRun(run *github.CheckRun) forgeapi.CheckRun {
	var conclusion *forgeapi.CheckConclusion
	if run.Conclusion != nil {
		c := forgeapi.CheckConclusion(run.GetConclusion())
		conclusion = &c
	}
	started := run.GetStartedAt()
	return forgeapi.CheckRun{
		Name:       run.GetName(),
		Conclusion: conclusion,
		StartedAt:  started.Time,
		App:        forgeapi.Application{Slug: run.GetApp().GetSlug()},
	}
}

func toReview(r *github.PullRequestReview) forgeapi.Review {
	submitted := r.GetSubmittedAt()
	return forgeapi.Review{
		User:        forgeapi.User{Login: r.GetUser().GetLogin()},
		State:       forgeapi.ReviewState(toLowerReviewState(r.GetState())),
		SubmittedAt: submitted.Time,
	}
}

func toLowerReviewState(state string) string {
	switch state {
	case "APPROVED":
		return string(forgeapi.ReviewStateApproved)
	case "CHANGES_REQUESTED":
		return string(forgeapi.ReviewStateChangesRequested)
	case "COMMENTED":
		return string(forgeapi.ReviewStateCommented)
	case "DISMISSED":
		return string(forgeapi.ReviewStateDismissed)
	default:
		return state
	}
}
