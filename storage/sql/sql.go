// Package sql is the production storage.Storage backed by PostgreSQL,
// via sqlx and lib/pq (enrichment grounded on the pack's sqlx-based
// persistence managers, since mungegithub treats GitHub itself as its
// database and carries no SQL layer of its own).
package sql

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/sharingcloud/prbot/domain"
	"github.com/sharingcloud/prbot/prerr"
	"github.com/sharingcloud/prbot/storage"
)

// Store is a PostgreSQL-backed storage.Storage.
type Store struct {
	db *sqlx.DB
}

// Open connects to connectionString and returns a ready-to-use Store.
func Open(connectionString string) (*Store, error) {
	db, err := sqlx.Connect("postgres", connectionString)
	if err != nil {
		return nil, prerr.Config("connect to storage backend", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ storage.Storage = (*Store)(nil)

type repositoryRow struct {
	ID                     uint64 `db:"id"`
	Owner                  string `db:"owner"`
	Name                   string `db:"name"`
	ManualInteraction      bool   `db:"manual_interaction"`
	PRTitleValidationRegex string `db:"pr_title_validation_regex"`
	DefaultStrategy        string `db:"default_strategy"`
	DefaultNeededReviewers uint64 `db:"default_needed_reviewers"`
	DefaultAutomerge       bool   `db:"default_automerge"`
	DefaultEnableQA        bool   `db:"default_enable_qa"`
	DefaultEnableChecks    bool   `db:"default_enable_checks"`
}

func (r repositoryRow) toDomain() domain.Repository {
	return domain.Repository{
		ID:                     r.ID,
		Owner:                  r.Owner,
		Name:                   r.Name,
		ManualInteraction:      r.ManualInteraction,
		PRTitleValidationRegex: r.PRTitleValidationRegex,
		DefaultStrategy:        domain.MergeStrategy(r.DefaultStrategy),
		DefaultNeededReviewers: r.DefaultNeededReviewers,
		DefaultAutomerge:       r.DefaultAutomerge,
		DefaultEnableQA:        r.DefaultEnableQA,
		DefaultEnableChecks:    r.DefaultEnableChecks,
	}
}

func (s *Store) RepositoriesCreate(ctx context.Context, r domain.Repository) (domain.Repository, error) {
	var id uint64
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO repositories (owner, name, manual_interaction, pr_title_validation_regex,
			default_strategy, default_needed_reviewers, default_automerge, default_enable_qa, default_enable_checks)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id
	`, r.Owner, r.Name, r.ManualInteraction, r.PRTitleValidationRegex, string(r.DefaultStrategy),
		r.DefaultNeededReviewers, r.DefaultAutomerge, r.DefaultEnableQA, r.DefaultEnableChecks).Scan(&id)
	if err != nil {
		return domain.Repository{}, prerr.ReferentialIntegrity("repository", err.Error())
	}
	r.ID = id
	return r, nil
}

func (s *Store) RepositoriesGet(ctx context.Context, owner, name string) (domain.Repository, bool, error) {
	var row repositoryRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM repositories WHERE owner=$1 AND name=$2`, owner, name)
	if err == sql.ErrNoRows {
		return domain.Repository{}, false, nil
	}
	if err != nil {
		return domain.Repository{}, false, prerr.IO("query repository", err)
	}
	return row.toDomain(), true, nil
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

func (s *Store) RepositoriesGetOrCreate(ctx context.Context, owner, name string, defaults domain.Repository) (domain.Repository, error) {
	if r, ok, err := s.RepositoriesGet(ctx, owner, name); err != nil {
		return domain.Repository{}, err
	} else if ok {
		return r, nil
	}
	defaults.Owner = owner
	defaults.Name = name
	return s.RepositoriesCreate(ctx, defaults)
}

func (s *Store) RepositoriesUpdate(ctx context.Context, owner, name string, mutate func(*domain.Repository) error) (domain.Repository, error) {
	r, err := s.RepositoriesGetExpect(ctx, owner, name)
	if err != nil {
		return domain.Repository{}, err
	}
	if err := mutate(&r); err != nil {
		return domain.Repository{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE repositories SET manual_interaction=$1, pr_title_validation_regex=$2, default_strategy=$3,
			default_needed_reviewers=$4, default_automerge=$5, default_enable_qa=$6, default_enable_checks=$7
		WHERE owner=$8 AND name=$9
	`, r.ManualInteraction, r.PRTitleValidationRegex, string(r.DefaultStrategy), r.DefaultNeededReviewers,
		r.DefaultAutomerge, r.DefaultEnableQA, r.DefaultEnableChecks, owner, name)
	if err != nil {
		return domain.Repository{}, prerr.IO("update repository", err)
	}
	return r, nil
}

func (s *Store) RepositoriesDelete(ctx context.Context, owner, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM repositories WHERE owner=$1 AND name=$2`, owner, name)
	if err != nil {
		return prerr.IO("delete repository", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return prerr.NotFound("repository", nil)
	}
	return nil
}

func (s *Store) RepositoriesAll(ctx context.Context) ([]domain.Repository, error) {
	var rows []repositoryRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM repositories ORDER BY id`); err != nil {
		return nil, prerr.IO("list repositories", err)
	}
	out := make([]domain.Repository, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

type pullRequestRow struct {
	ID                   uint64  `db:"id"`
	RepositoryID         uint64  `db:"repository_id"`
	Number               uint64  `db:"number"`
	QAStatus             string  `db:"qa_status"`
	NeededReviewersCount uint64  `db:"needed_reviewers_count"`
	StatusCommentID      uint64  `db:"status_comment_id"`
	ChecksEnabled        bool    `db:"checks_enabled"`
	Automerge            bool    `db:"automerge"`
	Locked               bool    `db:"locked"`
	LockReason           string  `db:"lock_reason"`
	StrategyOverride     *string `db:"strategy_override"`
}

func (r pullRequestRow) toDomain() domain.PullRequest {
	pr := domain.PullRequest{
		ID:                   r.ID,
		RepositoryID:         r.RepositoryID,
		Number:               r.Number,
		QAStatus:             domain.QaStatus(r.QAStatus),
		NeededReviewersCount: r.NeededReviewersCount,
		StatusCommentID:      r.StatusCommentID,
		ChecksEnabled:        r.ChecksEnabled,
		Automerge:            r.Automerge,
		Locked:               r.Locked,
		LockReason:           r.LockReason,
	}
	if r.StrategyOverride != nil {
		strategy := domain.MergeStrategy(*r.StrategyOverride)
		pr.StrategyOverride = &strategy
	}
	return pr
}

func (s *Store) pullRequestsByOwnerName(ctx context.Context, owner, name string, number uint64) (pullRequestRow, bool, error) {
	var row pullRequestRow
	err := s.db.GetContext(ctx, &row, `
		SELECT pr.* FROM pull_requests pr
		JOIN repositories r ON r.id = pr.repository_id
		WHERE r.owner=$1 AND r.name=$2 AND pr.number=$3
	`, owner, name, number)
	if err == sql.ErrNoRows {
		return pullRequestRow{}, false, nil
	}
	if err != nil {
		return pullRequestRow{}, false, prerr.IO("query pull request", err)
	}
	return row, true, nil
}

func (s *Store) PullRequestsCreate(ctx context.Context, pr domain.PullRequest) (domain.PullRequest, error) {
	var strategyOverride *string
	if pr.StrategyOverride != nil {
		v := string(*pr.StrategyOverride)
		strategyOverride = &v
	}
	var id uint64
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO pull_requests (repository_id, number, qa_status, needed_reviewers_count,
			status_comment_id, checks_enabled, automerge, locked, lock_reason, strategy_override)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id
	`, pr.RepositoryID, pr.Number, string(pr.QAStatus), pr.NeededReviewersCount, pr.StatusCommentID,
		pr.ChecksEnabled, pr.Automerge, pr.Locked, pr.LockReason, strategyOverride).Scan(&id)
	if err != nil {
		return domain.PullRequest{}, prerr.ReferentialIntegrity("pull_request", err.Error())
	}
	pr.ID = id
	return pr, nil
}

func (s *Store) PullRequestsGet(ctx context.Context, owner, name string, number uint64) (domain.PullRequest, bool, error) {
	row, ok, err := s.pullRequestsByOwnerName(ctx, owner, name, number)
	if err != nil || !ok {
		return domain.PullRequest{}, ok, err
	}
	return row.toDomain(), true, nil
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

func (s *Store) PullRequestsList(ctx context.Context, owner, name string) ([]domain.PullRequest, error) {
	var rows []pullRequestRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT pr.* FROM pull_requests pr
		JOIN repositories r ON r.id = pr.repository_id
		WHERE r.owner=$1 AND r.name=$2
		ORDER BY pr.number
	`, owner, name)
	if err != nil {
		return nil, prerr.IO("list pull requests", err)
	}
	out := make([]domain.PullRequest, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

func (s *Store) pullRequestsSet(ctx context.Context, owner, name string, number uint64, column string, value interface{}) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE pull_requests SET `+column+`=$1
		WHERE repository_id = (SELECT id FROM repositories WHERE owner=$2 AND name=$3) AND number=$4
	`, value, owner, name, number)
	if err != nil {
		return prerr.IO("update pull request", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return prerr.NotFound("pull_request", nil)
	}
	return nil
}

func (s *Store) PullRequestsSetStatusCommentID(ctx context.Context, owner, name string, number, commentID uint64) error {
	return s.pullRequestsSet(ctx, owner, name, number, "status_comment_id", commentID)
}

func (s *Store) PullRequestsSetQAStatus(ctx context.Context, owner, name string, number uint64, status domain.QaStatus) error {
	return s.pullRequestsSet(ctx, owner, name, number, "qa_status", string(status))
}

func (s *Store) PullRequestsSetChecksEnabled(ctx context.Context, owner, name string, number uint64, enabled bool) error {
	return s.pullRequestsSet(ctx, owner, name, number, "checks_enabled", enabled)
}

func (s *Store) PullRequestsSetAutomerge(ctx context.Context, owner, name string, number uint64, automerge bool) error {
	return s.pullRequestsSet(ctx, owner, name, number, "automerge", automerge)
}

func (s *Store) PullRequestsSetNeededReviewers(ctx context.Context, owner, name string, number uint64, count uint64) error {
	return s.pullRequestsSet(ctx, owner, name, number, "needed_reviewers_count", count)
}

func (s *Store) PullRequestsSetLocked(ctx context.Context, owner, name string, number uint64, locked bool, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE pull_requests SET locked=$1, lock_reason=$2
		WHERE repository_id = (SELECT id FROM repositories WHERE owner=$3 AND name=$4) AND number=$5
	`, locked, reason, owner, name, number)
	if err != nil {
		return prerr.IO("update pull request", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return prerr.NotFound("pull_request", nil)
	}
	return nil
}

func (s *Store) PullRequestsSetStrategyOverride(ctx context.Context, owner, name string, number uint64, strategy *domain.MergeStrategy) error {
	var value *string
	if strategy != nil {
		v := string(*strategy)
		value = &v
	}
	return s.pullRequestsSet(ctx, owner, name, number, "strategy_override", value)
}

type mergeRuleRow struct {
	RepositoryID uint64 `db:"repository_id"`
	BaseBranch   string `db:"base_branch"`
	HeadBranch   string `db:"head_branch"`
	Strategy     string `db:"strategy"`
}

func (r mergeRuleRow) toDomain() domain.MergeRule {
	return domain.MergeRule{RepositoryID: r.RepositoryID, BaseBranch: r.BaseBranch, HeadBranch: r.HeadBranch, Strategy: domain.MergeStrategy(r.Strategy)}
}

func (s *Store) MergeRulesGet(ctx context.Context, repositoryID uint64, base, head string) (domain.MergeRule, bool, error) {
	var row mergeRuleRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM merge_rules WHERE repository_id=$1 AND base_branch=$2 AND head_branch=$3`, repositoryID, base, head)
	if err == sql.ErrNoRows {
		return domain.MergeRule{}, false, nil
	}
	if err != nil {
		return domain.MergeRule{}, false, prerr.IO("query merge rule", err)
	}
	return row.toDomain(), true, nil
}

func (s *Store) MergeRulesSet(ctx context.Context, rule domain.MergeRule) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO merge_rules (repository_id, base_branch, head_branch, strategy)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (repository_id, base_branch, head_branch) DO UPDATE SET strategy=EXCLUDED.strategy
	`, rule.RepositoryID, rule.BaseBranch, rule.HeadBranch, string(rule.Strategy))
	if err != nil {
		return prerr.ReferentialIntegrity("merge_rule", err.Error())
	}
	return nil
}

func (s *Store) MergeRulesDelete(ctx context.Context, repositoryID uint64, base, head string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM merge_rules WHERE repository_id=$1 AND base_branch=$2 AND head_branch=$3`, repositoryID, base, head)
	if err != nil {
		return prerr.IO("delete merge rule", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return prerr.NotFound("merge_rule", nil)
	}
	return nil
}

func (s *Store) MergeRulesList(ctx context.Context, repositoryID uint64) ([]domain.MergeRule, error) {
	var rows []mergeRuleRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM merge_rules WHERE repository_id=$1 ORDER BY base_branch, head_branch`, repositoryID); err != nil {
		return nil, prerr.IO("list merge rules", err)
	}
	out := make([]domain.MergeRule, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

func (s *Store) PullRequestRulesGet(ctx context.Context, repositoryID uint64, name string) (domain.PullRequestRule, bool, error) {
	var raw []byte
	err := s.db.GetContext(ctx, &raw, `SELECT definition FROM pull_request_rules WHERE repository_id=$1 AND name=$2`, repositoryID, name)
	if err == sql.ErrNoRows {
		return domain.PullRequestRule{}, false, nil
	}
	if err != nil {
		return domain.PullRequestRule{}, false, prerr.IO("query pull request rule", err)
	}
	rule, err := decodeRule(repositoryID, name, raw)
	return rule, true, err
}

func (s *Store) PullRequestRulesSet(ctx context.Context, rule domain.PullRequestRule) error {
	raw, err := encodeRule(rule)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pull_request_rules (repository_id, name, definition)
		VALUES ($1,$2,$3)
		ON CONFLICT (repository_id, name) DO UPDATE SET definition=EXCLUDED.definition
	`, rule.RepositoryID, rule.Name, raw)
	if err != nil {
		return prerr.ReferentialIntegrity("pull_request_rule", err.Error())
	}
	return nil
}

func (s *Store) PullRequestRulesDelete(ctx context.Context, repositoryID uint64, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pull_request_rules WHERE repository_id=$1 AND name=$2`, repositoryID, name)
	if err != nil {
		return prerr.IO("delete pull request rule", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return prerr.NotFound("pull_request_rule", nil)
	}
	return nil
}

func (s *Store) PullRequestRulesList(ctx context.Context, repositoryID uint64) ([]domain.PullRequestRule, error) {
	rows, err := s.db.QueryxContext(ctx, `SELECT name, definition FROM pull_request_rules WHERE repository_id=$1 ORDER BY name`, repositoryID)
	if err != nil {
		return nil, prerr.IO("list pull request rules", err)
	}
	defer rows.Close()

	var out []domain.PullRequestRule
	for rows.Next() {
		var name string
		var raw []byte
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, prerr.IO("scan pull request rule", err)
		}
		rule, err := decodeRule(repositoryID, name, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, nil
}

func (s *Store) AccountsGet(ctx context.Context, username string) (domain.Account, bool, error) {
	var a domain.Account
	err := s.db.GetContext(ctx, &a, `SELECT username, is_admin AS "isadmin" FROM accounts WHERE username=$1`, username)
	if err == sql.ErrNoRows {
		return domain.Account{}, false, nil
	}
	if err != nil {
		return domain.Account{}, false, prerr.IO("query account", err)
	}
	return a, true, nil
}

func (s *Store) AccountsSet(ctx context.Context, account domain.Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (username, is_admin) VALUES ($1,$2)
		ON CONFLICT (username) DO UPDATE SET is_admin=EXCLUDED.is_admin
	`, account.Username, account.IsAdmin)
	if err != nil {
		return prerr.IO("set account", err)
	}
	return nil
}

func (s *Store) AccountsAll(ctx context.Context) ([]domain.Account, error) {
	var out []domain.Account
	if err := s.db.SelectContext(ctx, &out, `SELECT username, is_admin AS "isadmin" FROM accounts ORDER BY username`); err != nil {
		return nil, prerr.IO("list accounts", err)
	}
	return out, nil
}

func (s *Store) ExternalAccountsGet(ctx context.Context, username string) (domain.ExternalAccount, bool, error) {
	var a domain.ExternalAccount
	err := s.db.GetContext(ctx, &a, `SELECT username, public_key AS "publickey", private_key AS "privatekey" FROM external_accounts WHERE username=$1`, username)
	if err == sql.ErrNoRows {
		return domain.ExternalAccount{}, false, nil
	}
	if err != nil {
		return domain.ExternalAccount{}, false, prerr.IO("query external account", err)
	}
	return a, true, nil
}

func (s *Store) ExternalAccountsSet(ctx context.Context, account domain.ExternalAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO external_accounts (username, public_key, private_key) VALUES ($1,$2,$3)
		ON CONFLICT (username) DO UPDATE SET public_key=EXCLUDED.public_key, private_key=EXCLUDED.private_key
	`, account.Username, account.PublicKey, account.PrivateKey)
	if err != nil {
		return prerr.IO("set external account", err)
	}
	return nil
}

func (s *Store) ExternalAccountsAll(ctx context.Context) ([]domain.ExternalAccount, error) {
	var out []domain.ExternalAccount
	if err := s.db.SelectContext(ctx, &out, `SELECT username, public_key AS "publickey", private_key AS "privatekey" FROM external_accounts ORDER BY username`); err != nil {
		return nil, prerr.IO("list external accounts", err)
	}
	return out, nil
}

func (s *Store) ExternalAccountRightsAdd(ctx context.Context, right domain.ExternalAccountRight) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO external_account_rights (username, repository_id) VALUES ($1,$2)
		ON CONFLICT DO NOTHING
	`, right.Username, right.RepositoryID)
	if err != nil {
		return prerr.ReferentialIntegrity("external_account_right", err.Error())
	}
	return nil
}

func (s *Store) ExternalAccountRightsRemove(ctx context.Context, username string, repositoryID uint64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM external_account_rights WHERE username=$1 AND repository_id=$2`, username, repositoryID)
	if err != nil {
		return prerr.IO("remove external account right", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return prerr.NotFound("external_account_right", nil)
	}
	return nil
}

func (s *Store) ExternalAccountRightsList(ctx context.Context, username string) ([]domain.ExternalAccountRight, error) {
	var repoIDs []uint64
	if err := s.db.SelectContext(ctx, &repoIDs, `SELECT repository_id FROM external_account_rights WHERE username=$1 ORDER BY repository_id`, username); err != nil {
		return nil, prerr.IO("list external account rights", err)
	}
	out := make([]domain.ExternalAccountRight, len(repoIDs))
	for i, id := range repoIDs {
		out[i] = domain.ExternalAccountRight{Username: username, RepositoryID: id}
	}
	return out, nil
}

func (s *Store) ExternalAccountHasRight(ctx context.Context, username string, repositoryID uint64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM external_account_rights WHERE username=$1 AND repository_id=$2)`, username, repositoryID)
	if err != nil {
		return false, prerr.IO("check external account right", err)
	}
	return exists, nil
}

func (s *Store) RequiredReviewersAdd(ctx context.Context, pullRequestID uint64, username string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO required_reviewers (pull_request_id, username) VALUES ($1,$2)
		ON CONFLICT DO NOTHING
	`, pullRequestID, username)
	if err != nil {
		return prerr.ReferentialIntegrity("required_reviewer", err.Error())
	}
	return nil
}

func (s *Store) RequiredReviewersRemove(ctx context.Context, pullRequestID uint64, username string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM required_reviewers WHERE pull_request_id=$1 AND username=$2`, pullRequestID, username)
	if err != nil {
		return prerr.IO("remove required reviewer", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return prerr.NotFound("required_reviewer", nil)
	}
	return nil
}

func (s *Store) RequiredReviewersList(ctx context.Context, pullRequestID uint64) ([]string, error) {
	var out []string
	if err := s.db.SelectContext(ctx, &out, `SELECT username FROM required_reviewers WHERE pull_request_id=$1 ORDER BY username`, pullRequestID); err != nil {
		return nil, prerr.IO("list required reviewers", err)
	}
	return out, nil
}
