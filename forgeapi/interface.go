package forgeapi

import "context"

// API is the capability object consumed by the core to talk to the
// forge. Every operation is fallible and returns a *prerr.Error on
// failure; the interface is narrow enough to be satisfied by an
// in-memory fake for tests (forgeapi/memory).
type API interface {
	// Pull requests.
	PullRequestGet(ctx context.Context, owner, name string, number uint64) (PullRequest, error)
	PullRequestMerge(ctx context.Context, owner, name string, number uint64, commitTitle, commitMessage string, strategy string) (MergeResult, error)

	// Check runs.
	CheckRunsList(ctx context.Context, owner, name, sha string) ([]CheckRun, error)

	// Reviews.
	ReviewsList(ctx context.Context, owner, name string, number uint64) ([]Review, error)
	ReviewRequestsAdd(ctx context.Context, owner, name string, number uint64, logins []string) error
	ReviewRequestsRemove(ctx context.Context, owner, name string, number uint64, logins []string) error

	// Commit status.
	CombinedStatusGet(ctx context.Context, owner, name, sha string) (CombinedStatus, error)
	StatusCreate(ctx context.Context, owner, name, sha, state, context, description, targetURL string) error

	// Labels.
	IssueLabelsList(ctx context.Context, owner, name string, number uint64) ([]string, error)
	IssueLabelsReplaceAll(ctx context.Context, owner, name string, number uint64, labels []string) error

	// Comments.
	CommentsCreate(ctx context.Context, owner, name string, number uint64, body string) (uint64, error)
	CommentsUpdate(ctx context.Context, owner, name string, commentID uint64, body string) error
	CommentsDelete(ctx context.Context, owner, name string, commentID uint64) error
	CommentReactionAdd(ctx context.Context, owner, name string, commentID uint64, reaction ReactionKind) error

	// Collaborators / permissions.
	IsWriteCollaborator(ctx context.Context, owner, name, login string) (bool, error)

	// Gif search (external, third-party provider proxied by the bot).
	GifSearch(ctx context.Context, query string) ([]GifResult, error)

	// Installation tokens (GitHub-app auth minting, consumed by the
	// production adapter; the in-memory fake returns a constant).
	InstallationTokenCreate(ctx context.Context, installationID int64) (string, error)
}
