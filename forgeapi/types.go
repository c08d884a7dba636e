// Package forgeapi defines the narrow capability surface over the
// forge's HTTP API: issue labels, reviews, review requests, comments,
// reactions, check-runs, combined commit status, status updates,
// pull-request fetch/merge, gif search and
// installation-token minting.
package forgeapi

import "time"

// User is a minimal forge account reference.
type User struct {
	Login string
}

// Branch is one end of a pull request.
type Branch struct {
	Ref string
	SHA string
}

// PullRequest is the upstream pull-request snapshot as reported by the
// forge at fetch time.
type PullRequest struct {
	Number    uint64
	Title     string
	Body      string
	Draft     bool
	Merged    bool
	Mergeable *bool
	User      User
	Base      Branch
	Head      Branch
}

// CheckConclusion is the closed set of check-run conclusions the forge
// reports.
type CheckConclusion string

const (
	CheckConclusionSuccess CheckConclusion = "success"
	CheckConclusionFailure CheckConclusion = "failure"
	CheckConclusionNeutral CheckConclusion = "neutral"
	CheckConclusionSkipped CheckConclusion = "skipped"
)

// Application identifies the app that created a check-run.
type Application struct {
	Slug string
}

// CheckRun is one upstream check-run result for a commit SHA.
type CheckRun struct {
	Name       string
	Conclusion *CheckConclusion
	StartedAt  time.Time
	App        Application
}

// ReviewState is the closed set of pull-request review states.
type ReviewState string

const (
	ReviewStateApproved        ReviewState = "approved"
	ReviewStateChangesRequested ReviewState = "changes_requested"
	ReviewStateCommented       ReviewState = "commented"
	ReviewStateDismissed       ReviewState = "dismissed"
)

// Review is one upstream pull-request review.
type Review struct {
	User        User
	State       ReviewState
	SubmittedAt time.Time
}

// CombinedStatus is the forge's aggregated commit-status view for one
// SHA, keyed by status context.
type CombinedStatus struct {
	Statuses map[string]StatusEntry
}

// StatusEntry is one context's published commit-status state.
type StatusEntry struct {
	State   string
	Context string
	Desc    string
}

// Comment is an issue/pull-request comment.
type Comment struct {
	ID   uint64
	Body string
	User User
}

// ReactionKind is the closed set of reactions the bot applies to
// comments.
type ReactionKind string

const (
	ReactionEyes        ReactionKind = "eyes"
	ReactionThumbsDown  ReactionKind = "-1"
	ReactionThumbsUp    ReactionKind = "+1"
	ReactionHooray      ReactionKind = "hooray"
)

// MergeResult reports the outcome of a successful merge attempt.
type MergeResult struct {
	SHA    string
	Merged bool
}

// GifResult is one gif search hit.
type GifResult struct {
	URL string
}
