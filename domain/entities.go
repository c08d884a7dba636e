package domain

import "strconv"

// Repository is a forge repository tracked by the bot, identified
// externally by (Owner, Name).
type Repository struct {
	ID                         uint64
	Owner                      string
	Name                       string
	ManualInteraction          bool
	PRTitleValidationRegex     string
	DefaultStrategy            MergeStrategy
	DefaultNeededReviewers     uint64
	DefaultAutomerge           bool
	DefaultEnableQA            bool
	DefaultEnableChecks        bool
}

// Path returns the "owner/name" form used to address a repository
// externally.
func (r Repository) Path() string {
	return r.Owner + "/" + r.Name
}

// PullRequest is the bot's persisted view of one forge pull request,
// identified externally by (repository.Owner, repository.Name, Number).
type PullRequest struct {
	ID                    uint64
	RepositoryID          uint64
	Number                uint64
	QAStatus              QaStatus
	NeededReviewersCount  uint64
	StatusCommentID       uint64
	ChecksEnabled         bool
	Automerge             bool
	Locked                bool
	LockReason            string
	StrategyOverride      *MergeStrategy
}

// Handle addresses a single pull request by its external coordinates.
type Handle struct {
	Owner  string
	Name   string
	Number uint64
}

func NewHandle(owner, name string, number uint64) Handle {
	return Handle{Owner: owner, Name: name, Number: number}
}

func (h Handle) RepositoryPath() string {
	return h.Owner + "/" + h.Name
}

func (h Handle) String() string {
	return h.Owner + "/" + h.Name + "#" + strconv.FormatUint(h.Number, 10)
}

// MergeRule maps a (base, head) branch pair, which may use the "*"
// wildcard on either side, to a MergeStrategy for one repository.
type MergeRule struct {
	RepositoryID uint64
	BaseBranch   string
	HeadBranch   string
	Strategy     MergeStrategy
}

const Wildcard = "*"

// RuleConditionKind is the closed set of condition kinds a
// PullRequestRule may use.
type RuleConditionKind string

const (
	ConditionAuthor     RuleConditionKind = "author"
	ConditionBaseBranch RuleConditionKind = "base_branch"
	ConditionHeadBranch RuleConditionKind = "head_branch"
)

// RuleCondition is one predicate of a PullRequestRule's ordered
// condition list.
type RuleCondition struct {
	Kind  RuleConditionKind
	Value string
}

// RuleActionKind is the closed set of action kinds a PullRequestRule
// may apply.
type RuleActionKind string

const (
	ActionSetAutomerge        RuleActionKind = "set_automerge"
	ActionSetChecksEnabled    RuleActionKind = "set_checks_enabled"
	ActionSetNeededReviewers  RuleActionKind = "set_needed_reviewers"
	ActionSetQaStatus         RuleActionKind = "set_qa_status"
)

// RuleAction is one mutation of a PullRequestRule's ordered action
// list.
type RuleAction struct {
	Kind       RuleActionKind
	Bool       bool
	Count      uint64
	QaStatus   QaStatus
}

// PullRequestRule is a repository-scoped declarative (conditions,
// actions) pair applied on pull request open.
type PullRequestRule struct {
	RepositoryID uint64
	Name         string
	Conditions   []RuleCondition
	Actions      []RuleAction
}

// Inert reports whether the rule can never match or never do
// anything.
func (r PullRequestRule) Inert() bool {
	return len(r.Conditions) == 0 || len(r.Actions) == 0
}

// Account is a forge user known to the bot.
type Account struct {
	Username string
	IsAdmin  bool
}

// ExternalAccount is a non-interactive identity with an RSA keypair,
// used to authenticate calls to the external QA endpoint.
type ExternalAccount struct {
	Username   string
	PublicKey  string
	PrivateKey string
}

// HasKeys reports whether keys have ever been set on this account.
func (e ExternalAccount) HasKeys() bool {
	return e.PublicKey != "" || e.PrivateKey != ""
}

// ExternalAccountRight grants an ExternalAccount the right to act on
// one repository.
type ExternalAccountRight struct {
	Username     string
	RepositoryID uint64
}

// RequiredReviewer is a user whose approval is mandatory on one pull
// request.
type RequiredReviewer struct {
	PullRequestID uint64
	Username      string
}
