package domain

// PullRequestStatus is the derived, non-persisted aggregate computed
// on every reconciliation from persisted state, the upstream pull
// request snapshot and the forge's check-runs/reviews/commit-statuses.
type PullRequestStatus struct {
	ChecksStatus               ChecksStatus
	QAStatus                   QaStatus
	ValidPRTitle               bool
	PullRequestTitleRegex      string
	Wip                        bool
	Locked                     bool
	Merged                     bool
	Mergeable                  bool
	MergeStrategy              MergeStrategy
	Automerge                  bool
	NeededReviewersCount       uint64
	ApprovedReviewers          []string
	ChangesRequiredReviewers   []string
	MissingRequiredReviewers   []string
	ChecksURL                  string
	RuleNames                  []string
}

// MissingRequiredReviews reports whether any mandatory reviewer has
// not yet approved.
func (s PullRequestStatus) MissingRequiredReviews() bool {
	return len(s.MissingRequiredReviewers) > 0
}

// MissingReviews reports whether fewer reviewers have approved than
// required by the repository/pull-request's needed-reviewers count.
func (s PullRequestStatus) MissingReviews() bool {
	return uint64(len(s.ApprovedReviewers)) < s.NeededReviewersCount
}

// ChangesRequired reports whether any reviewer has requested changes.
func (s PullRequestStatus) ChangesRequired() bool {
	return len(s.ChangesRequiredReviewers) > 0
}
