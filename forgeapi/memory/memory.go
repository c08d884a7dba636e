// Package memory is an in-memory forgeapi.API fake used by tests and
// by the default "no forge configured" dev mode: every mutating call
// just records state in maps so tests can assert on it.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sharingcloud/prbot/forgeapi"
	"github.com/sharingcloud/prbot/prerr"
)

type prKey struct {
	owner, name string
	number      uint64
}

// API is an in-memory forgeapi.API implementation. The zero value is
// not ready to use; call New.
type API struct {
	mu sync.Mutex

	pulls       map[prKey]forgeapi.PullRequest
	checkRuns   map[prKey][]forgeapi.CheckRun
	reviews     map[prKey][]forgeapi.Review
	labels      map[prKey][]string
	comments    map[uint64]forgeapi.Comment
	nextComment uint64
	statuses    map[string]map[string]forgeapi.StatusEntry // sha -> context -> entry
	reactions   map[uint64][]forgeapi.ReactionKind
	writers     map[string]bool // "owner/name/login" -> can write
	gifs        []forgeapi.GifResult
	merged      map[prKey]forgeapi.MergeResult

	// FailMerge, when set, makes PullRequestMerge fail for the given
	// key, to let tests exercise the automerge error path.
	FailMerge map[prKey]bool

	// MissingComments marks comment ids that should behave as deleted
	// upstream ("not found" on update/delete), to exercise the summary
	// manager's recreate-on-missing path.
	MissingComments map[uint64]bool
}

// New returns a ready-to-use in-memory API.
func New() *API {
	return &API{
		pulls:           map[prKey]forgeapi.PullRequest{},
		checkRuns:       map[prKey][]forgeapi.CheckRun{},
		reviews:         map[prKey][]forgeapi.Review{},
		labels:          map[prKey][]string{},
		comments:        map[uint64]forgeapi.Comment{},
		statuses:        map[string]map[string]forgeapi.StatusEntry{},
		reactions:       map[uint64][]forgeapi.ReactionKind{},
		writers:         map[string]bool{},
		merged:          map[prKey]forgeapi.MergeResult{},
		FailMerge:       map[prKey]bool{},
		MissingComments: map[uint64]bool{},
	}
}

// SetPullRequest seeds (or replaces) the upstream pull request used by
// PullRequestGet.
func (a *API) SetPullRequest(owner, name string, pr forgeapi.PullRequest) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pulls[prKey{owner, name, pr.Number}] = pr
}

// SetCheckRuns seeds the check-runs of pull request number. CheckRunsList
// returns them for the head sha of that pull request as seeded by
// SetPullRequest, or for any sha when no pull request is seeded under
// that number.
func (a *API) SetCheckRuns(owner, name string, number uint64, runs []forgeapi.CheckRun) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checkRuns[prKey{owner, name, number}] = runs
}

// SetReviews seeds the reviews returned for a pull request.
func (a *API) SetReviews(owner, name string, number uint64, reviews []forgeapi.Review) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reviews[prKey{owner, name, number}] = reviews
}

// SetWriteCollaborator seeds the write-permission answer for a login.
func (a *API) SetWriteCollaborator(owner, name, login string, canWrite bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.writers[owner+"/"+name+"/"+login] = canWrite
}

// SetGifResults seeds the results returned by GifSearch.
func (a *API) SetGifResults(results []forgeapi.GifResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gifs = results
}

func (a *API) PullRequestGet(_ context.Context, owner, name string, number uint64) (forgeapi.PullRequest, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	pr, ok := a.pulls[prKey{owner, name, number}]
	if !ok {
		return forgeapi.PullRequest{}, prerr.NotFound("pull_request", nil)
	}
	return pr, nil
}

func (a *API) PullRequestMerge(_ context.Context, owner, name string, number uint64, commitTitle, commitMessage string, strategy string) (forgeapi.MergeResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	k := prKey{owner, name, number}
	if a.FailMerge[k] {
		return forgeapi.MergeResult{}, prerr.Merge("forge refused the merge", nil)
	}
	pr := a.pulls[k]
	pr.Merged = true
	a.pulls[k] = pr
	result := forgeapi.MergeResult{SHA: pr.Head.SHA, Merged: true}
	a.merged[k] = result
	return result, nil
}

func (a *API) CheckRunsList(_ context.Context, owner, name, sha string) ([]forgeapi.CheckRun, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for k, pr := range a.pulls {
		if k.owner == owner && k.name == name && pr.Head.SHA == sha {
			return append([]forgeapi.CheckRun(nil), a.checkRuns[k]...), nil
		}
	}
	for k, runs := range a.checkRuns {
		if _, seeded := a.pulls[k]; !seeded && k.owner == owner && k.name == name {
			return append([]forgeapi.CheckRun(nil), runs...), nil
		}
	}
	return nil, nil
}

func (a *API) ReviewsList(_ context.Context, owner, name string, number uint64) ([]forgeapi.Review, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]forgeapi.Review(nil), a.reviews[prKey{owner, name, number}]...), nil
}

func (a *API) ReviewRequestsAdd(_ context.Context, _, _ string, _ uint64, _ []string) error {
	return nil
}

func (a *API) ReviewRequestsRemove(_ context.Context, _, _ string, _ uint64, _ []string) error {
	return nil
}

func (a *API) CombinedStatusGet(_ context.Context, owner, name, sha string) (forgeapi.CombinedStatus, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := owner + "/" + name + "@" + sha
	return forgeapi.CombinedStatus{Statuses: cloneStatusMap(a.statuses[key])}, nil
}

func (a *API) StatusCreate(_ context.Context, owner, name, sha, state, ctx, description, targetURL string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := owner + "/" + name + "@" + sha
	if a.statuses[key] == nil {
		a.statuses[key] = map[string]forgeapi.StatusEntry{}
	}
	a.statuses[key][ctx] = forgeapi.StatusEntry{State: state, Context: ctx, Desc: description}
	return nil
}

func (a *API) IssueLabelsList(_ context.Context, owner, name string, number uint64) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.labels[prKey{owner, name, number}]...), nil
}

func (a *API) IssueLabelsReplaceAll(_ context.Context, owner, name string, number uint64, labels []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	sorted := append([]string(nil), labels...)
	sort.Strings(sorted)
	a.labels[prKey{owner, name, number}] = sorted
	return nil
}

func (a *API) CommentsCreate(_ context.Context, owner, name string, number uint64, body string) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextComment++
	id := a.nextComment
	a.comments[id] = forgeapi.Comment{ID: id, Body: body}
	return id, nil
}

func (a *API) CommentsUpdate(_ context.Context, _, _ string, commentID uint64, body string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.MissingComments[commentID] {
		return prerr.NotFound("comment", fmt.Errorf("comment %d not found", commentID))
	}
	c, ok := a.comments[commentID]
	if !ok {
		return prerr.NotFound("comment", fmt.Errorf("comment %d not found", commentID))
	}
	c.Body = body
	a.comments[commentID] = c
	return nil
}

func (a *API) CommentsDelete(_ context.Context, _, _ string, commentID uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.comments[commentID]; !ok {
		return nil // ignore "not found" from the forge
	}
	delete(a.comments, commentID)
	return nil
}

func (a *API) CommentReactionAdd(_ context.Context, _, _ string, commentID uint64, reaction forgeapi.ReactionKind) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reactions[commentID] = append(a.reactions[commentID], reaction)
	return nil
}

func (a *API) IsWriteCollaborator(_ context.Context, owner, name, login string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.writers[owner+"/"+name+"/"+login], nil
}

func (a *API) GifSearch(_ context.Context, _ string) ([]forgeapi.GifResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]forgeapi.GifResult(nil), a.gifs...), nil
}

func (a *API) InstallationTokenCreate(_ context.Context, _ int64) (string, error) {
	return "fake-installation-token", nil
}

// Comment returns the current body of a posted comment, for test
// assertions.
func (a *API) Comment(id uint64) (forgeapi.Comment, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.comments[id]
	return c, ok
}

// Reactions returns the reactions applied to a comment, for test
// assertions.
func (a *API) Reactions(commentID uint64) []forgeapi.ReactionKind {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]forgeapi.ReactionKind(nil), a.reactions[commentID]...)
}

// CommentCount returns how many comments currently exist, for test
// assertions on the "at most one summary comment" invariant.
func (a *API) CommentCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.comments)
}

func cloneStatusMap(m map[string]forgeapi.StatusEntry) map[string]forgeapi.StatusEntry {
	if m == nil {
		return map[string]forgeapi.StatusEntry{}
	}
	out := make(map[string]forgeapi.StatusEntry, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

var _ forgeapi.API = (*API)(nil)
