// Package memory is an in-memory storage.Storage implementation. It
// is the bot's default backend for tests and dev-mode, and enforces
// the same referential-integrity and uniqueness invariants any
// backend must (so business-logic tests can rely on them without a
// real database).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sharingcloud/prbot/domain"
	"github.com/sharingcloud/prbot/prerr"
	"github.com/sharingcloud/prbot/storage"
)

type repoKey struct{ owner, name string }

type prKey struct {
	owner, name string
	number      uint64
}

type mergeRuleKey struct {
	repositoryID        uint64
	base, head          string
}

type ruleKey struct {
	repositoryID uint64
	name         string
}

// Store is an in-memory storage.Storage. The zero value is not ready
// to use; call New.
type Store struct {
	mu sync.Mutex

	nextRepoID uint64
	nextPRID   uint64

	repos        map[repoKey]domain.Repository
	reposByID    map[uint64]repoKey
	prs          map[prKey]domain.PullRequest
	prsByID      map[uint64]prKey
	mergeRules   map[mergeRuleKey]domain.MergeRule
	prRules      map[ruleKey]domain.PullRequestRule
	accounts     map[string]domain.Account
	extAccounts  map[string]domain.ExternalAccount
	extRights    map[string]map[uint64]struct{}
	requiredRevs map[uint64]map[string]struct{}
}

// New returns a ready-to-use in-memory Store.
func New() *Store {
	return &Store{
		repos:        map[repoKey]domain.Repository{},
		reposByID:    map[uint64]repoKey{},
		prs:          map[prKey]domain.PullRequest{},
		prsByID:      map[uint64]prKey{},
		mergeRules:   map[mergeRuleKey]domain.MergeRule{},
		prRules:      map[ruleKey]domain.PullRequestRule{},
		accounts:     map[string]domain.Account{},
		extAccounts:  map[string]domain.ExternalAccount{},
		extRights:    map[string]map[uint64]struct{}{},
		requiredRevs: map[uint64]map[string]struct{}{},
	}
}

var _ storage.Storage = (*Store)(nil)

// --- repositories ---

func (s *Store) RepositoriesCreate(_ context.Context, r domain.Repository) (domain.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := repoKey{r.Owner, r.Name}
	if _, ok := s.repos[k]; ok {
		return domain.Repository{}, prerr.ReferentialIntegrity("repository", "repository already exists")
	}
	s.nextRepoID++
	r.ID = s.nextRepoID
	s.repos[k] = r
	s.reposByID[r.ID] = k
	return r, nil
}

func (s *Store) RepositoriesGet(_ context.Context, owner, name string) (domain.Repository, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.repos[repoKey{owner, name}]
	return r, ok, nil
}

func (s *Store) RepositoriesGetExpect(ctx context.Context, owner, name string) (domain.Repository, error) {
	r, ok, err := s.RepositoriesGet(ctx, owner, name)
	if err != nil {
		return domain.Repository{}, err
	}
	if !ok {
		return domain.Repository{}, prerr.NotFound("repository", nil)
	}
	return r, nil
}

func (s *Store) RepositoriesGetOrCreate(_ context.Context, owner, name string, defaults domain.Repository) (domain.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := repoKey{owner, name}
	if r, ok := s.repos[k]; ok {
		return r, nil
	}
	r := defaults
	r.Owner = owner
	r.Name = name
	s.nextRepoID++
	r.ID = s.nextRepoID
	s.repos[k] = r
	s.reposByID[r.ID] = k
	return r, nil
}

// RepositoriesUpdate always targets the pre-existing row identified by
// (owner, name); it never remaps the row's id.
func (s *Store) RepositoriesUpdate(_ context.Context, owner, name string, mutate func(*domain.Repository) error) (domain.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := repoKey{owner, name}
	r, ok := s.repos[k]
	if !ok {
		return domain.Repository{}, prerr.NotFound("repository", nil)
	}
	if err := mutate(&r); err != nil {
		return domain.Repository{}, err
	}
	s.repos[k] = r
	return r, nil
}

func (s *Store) RepositoriesDelete(_ context.Context, owner, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := repoKey{owner, name}
	r, ok := s.repos[k]
	if !ok {
		return prerr.NotFound("repository", nil)
	}
	delete(s.repos, k)
	delete(s.reposByID, r.ID)
	// Cascade delete all pull requests of this repository.
	for pk, pr := range s.prs {
		if pr.RepositoryID == r.ID {
			delete(s.prs, pk)
			delete(s.prsByID, pr.ID)
			delete(s.requiredRevs, pr.ID)
		}
	}
	for mk := range s.mergeRules {
		if mk.repositoryID == r.ID {
			delete(s.mergeRules, mk)
		}
	}
	for rk := range s.prRules {
		if rk.repositoryID == r.ID {
			delete(s.prRules, rk)
		}
	}
	for username, rights := range s.extRights {
		delete(rights, r.ID)
		if len(rights) == 0 {
			delete(s.extRights, username)
		}
	}
	return nil
}

func (s *Store) RepositoriesAll(_ context.Context) ([]domain.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Repository, 0, len(s.repos))
	for _, r := range s.repos {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- pull requests ---

func (s *Store) PullRequestsCreate(_ context.Context, pr domain.PullRequest) (domain.PullRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rk, ok := s.reposByID[pr.RepositoryID]
	if !ok {
		return domain.PullRequest{}, prerr.ReferentialIntegrity("pull_request", "unknown repository_id")
	}
	k := prKey{rk.owner, rk.name, pr.Number}
	if _, exists := s.prs[k]; exists {
		return domain.PullRequest{}, prerr.ReferentialIntegrity("pull_request", "pull request already exists")
	}
	s.nextPRID++
	pr.ID = s.nextPRID
	s.prs[k] = pr
	s.prsByID[pr.ID] = k
	return pr, nil
}

func (s *Store) PullRequestsGet(_ context.Context, owner, name string, number uint64) (domain.PullRequest, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pr, ok := s.prs[prKey{owner, name, number}]
	return pr, ok, nil
}

func (s *Store) PullRequestsGetExpect(ctx context.Context, owner, name string, number uint64) (domain.PullRequest, error) {
	pr, ok, err := s.PullRequestsGet(ctx, owner, name, number)
	if err != nil {
		return domain.PullRequest{}, err
	}
	if !ok {
		return domain.PullRequest{}, prerr.NotFound("pull_request", nil)
	}
	return pr, nil
}

func (s *Store) PullRequestsList(_ context.Context, owner, name string) ([]domain.PullRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.PullRequest{}
	for k, pr := range s.prs {
		if k.owner == owner && k.name == name {
			out = append(out, pr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *Store) mutatePR(owner, name string, number uint64, f func(*domain.PullRequest)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := prKey{owner, name, number}
	pr, ok := s.prs[k]
	if !ok {
		return prerr.NotFound("pull_request", nil)
	}
	f(&pr)
	s.prs[k] = pr
	return nil
}

func (s *Store) PullRequestsSetStatusCommentID(_ context.Context, owner, name string, number, commentID uint64) error {
	return s.mutatePR(owner, name, number, func(pr *domain.PullRequest) { pr.StatusCommentID = commentID })
}

func (s *Store) PullRequestsSetQAStatus(_ context.Context, owner, name string, number uint64, status domain.QaStatus) error {
	return s.mutatePR(owner, name, number, func(pr *domain.PullRequest) { pr.QAStatus = status })
}

func (s *Store) PullRequestsSetChecksEnabled(_ context.Context, owner, name string, number uint64, enabled bool) error {
	return s.mutatePR(owner, name, number, func(pr *domain.PullRequest) { pr.ChecksEnabled = enabled })
}

func (s *Store) PullRequestsSetAutomerge(_ context.Context, owner, name string, number uint64, automerge bool) error {
	return s.mutatePR(owner, name, number, func(pr *domain.PullRequest) { pr.Automerge = automerge })
}

func (s *Store) PullRequestsSetNeededReviewers(_ context.Context, owner, name string, number uint64, count uint64) error {
	return s.mutatePR(owner, name, number, func(pr *domain.PullRequest) { pr.NeededReviewersCount = count })
}

func (s *Store) PullRequestsSetLocked(_ context.Context, owner, name string, number uint64, locked bool, reason string) error {
	return s.mutatePR(owner, name, number, func(pr *domain.PullRequest) {
		pr.Locked = locked
		pr.LockReason = reason
	})
}

func (s *Store) PullRequestsSetStrategyOverride(_ context.Context, owner, name string, number uint64, strategy *domain.MergeStrategy) error {
	return s.mutatePR(owner, name, number, func(pr *domain.PullRequest) { pr.StrategyOverride = strategy })
}

// --- merge rules ---

func (s *Store) MergeRulesGet(_ context.Context, repositoryID uint64, base, head string) (domain.MergeRule, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.mergeRules[mergeRuleKey{repositoryID, base, head}]
	return r, ok, nil
}

func (s *Store) MergeRulesSet(_ context.Context, rule domain.MergeRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reposByID[rule.RepositoryID]; !ok {
		return prerr.ReferentialIntegrity("merge_rule", "unknown repository_id")
	}
	s.mergeRules[mergeRuleKey{rule.RepositoryID, rule.BaseBranch, rule.HeadBranch}] = rule
	return nil
}

func (s *Store) MergeRulesDelete(_ context.Context, repositoryID uint64, base, head string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := mergeRuleKey{repositoryID, base, head}
	if _, ok := s.mergeRules[k]; !ok {
		return prerr.NotFound("merge_rule", nil)
	}
	delete(s.mergeRules, k)
	return nil
}

func (s *Store) MergeRulesList(_ context.Context, repositoryID uint64) ([]domain.MergeRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.MergeRule{}
	for k, r := range s.mergeRules {
		if k.repositoryID == repositoryID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BaseBranch != out[j].BaseBranch {
			return out[i].BaseBranch < out[j].BaseBranch
		}
		return out[i].HeadBranch < out[j].HeadBranch
	})
	return out, nil
}

// --- pull-request rules ---

func (s *Store) PullRequestRulesGet(_ context.Context, repositoryID uint64, name string) (domain.PullRequestRule, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.prRules[ruleKey{repositoryID, name}]
	return r, ok, nil
}

func (s *Store) PullRequestRulesSet(_ context.Context, rule domain.PullRequestRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reposByID[rule.RepositoryID]; !ok {
		return prerr.ReferentialIntegrity("pull_request_rule", "unknown repository_id")
	}
	s.prRules[ruleKey{rule.RepositoryID, rule.Name}] = rule
	return nil
}

func (s *Store) PullRequestRulesDelete(_ context.Context, repositoryID uint64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := ruleKey{repositoryID, name}
	if _, ok := s.prRules[k]; !ok {
		return prerr.NotFound("pull_request_rule", nil)
	}
	delete(s.prRules, k)
	return nil
}

func (s *Store) PullRequestRulesList(_ context.Context, repositoryID uint64) ([]domain.PullRequestRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.PullRequestRule{}
	for k, r := range s.prRules {
		if k.repositoryID == repositoryID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --- accounts ---

func (s *Store) AccountsGet(_ context.Context, username string) (domain.Account, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[username]
	return a, ok, nil
}

func (s *Store) AccountsSet(_ context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.Username] = account
	return nil
}

func (s *Store) AccountsAll(_ context.Context) ([]domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// --- external accounts ---

func (s *Store) ExternalAccountsGet(_ context.Context, username string) (domain.ExternalAccount, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.extAccounts[username]
	return a, ok, nil
}

func (s *Store) ExternalAccountsSet(_ context.Context, account domain.ExternalAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extAccounts[account.Username] = account
	return nil
}

func (s *Store) ExternalAccountsAll(_ context.Context) ([]domain.ExternalAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ExternalAccount, 0, len(s.extAccounts))
	for _, a := range s.extAccounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *Store) ExternalAccountRightsAdd(_ context.Context, right domain.ExternalAccountRight) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.extAccounts[right.Username]; !ok {
		return prerr.ReferentialIntegrity("external_account_right", "unknown username")
	}
	if _, ok := s.reposByID[right.RepositoryID]; !ok {
		return prerr.ReferentialIntegrity("external_account_right", "unknown repository_id")
	}
	if s.extRights[right.Username] == nil {
		s.extRights[right.Username] = map[uint64]struct{}{}
	}
	s.extRights[right.Username][right.RepositoryID] = struct{}{}
	return nil
}

func (s *Store) ExternalAccountRightsRemove(_ context.Context, username string, repositoryID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rights, ok := s.extRights[username]
	if !ok {
		return prerr.NotFound("external_account_right", nil)
	}
	if _, ok := rights[repositoryID]; !ok {
		return prerr.NotFound("external_account_right", nil)
	}
	delete(rights, repositoryID)
	return nil
}

func (s *Store) ExternalAccountRightsList(_ context.Context, username string) ([]domain.ExternalAccountRight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.ExternalAccountRight{}
	for repoID := range s.extRights[username] {
		out = append(out, domain.ExternalAccountRight{Username: username, RepositoryID: repoID})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RepositoryID < out[j].RepositoryID })
	return out, nil
}

func (s *Store) ExternalAccountHasRight(_ context.Context, username string, repositoryID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.extRights[username][repositoryID]
	return ok, nil
}

// --- required reviewers ---

func (s *Store) RequiredReviewersAdd(_ context.Context, pullRequestID uint64, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.prsByID[pullRequestID]; !ok {
		return prerr.ReferentialIntegrity("required_reviewer", "unknown pull_request_id")
	}
	if s.requiredRevs[pullRequestID] == nil {
		s.requiredRevs[pullRequestID] = map[string]struct{}{}
	}
	s.requiredRevs[pullRequestID][username] = struct{}{}
	return nil
}

func (s *Store) RequiredReviewersRemove(_ context.Context, pullRequestID uint64, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	revs, ok := s.requiredRevs[pullRequestID]
	if !ok {
		return prerr.NotFound("required_reviewer", nil)
	}
	if _, ok := revs[username]; !ok {
		return prerr.NotFound("required_reviewer", nil)
	}
	delete(revs, username)
	return nil
}

func (s *Store) RequiredReviewersList(_ context.Context, pullRequestID uint64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []string{}
	for u := range s.requiredRevs[pullRequestID] {
		out = append(out, u)
	}
	sort.Strings(out)
	return out, nil
}
