// Package status builds a domain.PullRequestStatus snapshot from
// persisted state and the upstream forge's view of a pull request.
// Build is its entry point; it
// fetches check-runs and reviews through the forge API and rule
// matches through the rules package, then folds them into the status
// struct the step chooser consumes.
package status

import (
	"context"
	"regexp"
	"sort"
	"strconv"

	"github.com/sharingcloud/prbot/domain"
	"github.com/sharingcloud/prbot/forgeapi"
	"github.com/sharingcloud/prbot/prerr"
	"github.com/sharingcloud/prbot/rules"
	"github.com/sharingcloud/prbot/storage"
)

// Config carries the handful of deployment-wide settings the status
// builder needs but that do not belong in domain.Repository.
type Config struct {
	CIAppSlug            string
	WaitForInitialChecks bool
	ForgeHost            string
}

// Build constructs the PullRequestStatus for one pull request.
func Build(ctx context.Context, store storage.Storage, forge forgeapi.API, cfg Config, repo domain.Repository, pr domain.PullRequest, upstream forgeapi.PullRequest) (domain.PullRequestStatus, error) {
	validTitle, err := validPRTitle(repo.PRTitleValidationRegex, upstream.Title)
	if err != nil {
		return domain.PullRequestStatus{}, err
	}

	checksStatus, err := determineChecksStatus(ctx, forge, cfg, repo, pr, upstream)
	if err != nil {
		return domain.PullRequestStatus{}, err
	}

	strategy, err := resolveMergeStrategy(ctx, store, repo, pr, upstream)
	if err != nil {
		return domain.PullRequestStatus{}, err
	}

	approved, changesRequired, err := latestReviewStates(ctx, forge, repo, upstream.Number)
	if err != nil {
		return domain.PullRequestStatus{}, err
	}

	required, err := store.RequiredReviewersList(ctx, pr.ID)
	if err != nil {
		return domain.PullRequestStatus{}, err
	}
	missingRequired := missingReviewers(required, approved)

	matchedRules, err := rules.Resolve(ctx, store, repo.ID, upstream)
	if err != nil {
		return domain.PullRequestStatus{}, err
	}
	ruleNames := make([]string, 0, len(matchedRules))
	for _, r := range matchedRules {
		ruleNames = append(ruleNames, r.Name)
	}

	mergeable := upstream.Mergeable == nil || *upstream.Mergeable

	return domain.PullRequestStatus{
		ChecksStatus:             checksStatus,
		QAStatus:                 pr.QAStatus,
		ValidPRTitle:             validTitle,
		PullRequestTitleRegex:    repo.PRTitleValidationRegex,
		Wip:                      upstream.Draft,
		Locked:                   pr.Locked,
		Merged:                   upstream.Merged,
		Mergeable:                mergeable,
		MergeStrategy:            strategy,
		Automerge:                pr.Automerge,
		NeededReviewersCount:     pr.NeededReviewersCount,
		ApprovedReviewers:        approved,
		ChangesRequiredReviewers: changesRequired,
		MissingRequiredReviewers: missingRequired,
		ChecksURL:                checksURL(cfg.ForgeHost, repo, upstream.Number),
		RuleNames:                ruleNames,
	}, nil
}

func validPRTitle(pattern, title string) (bool, error) {
	if pattern == "" {
		return true, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, prerr.Regex("invalid pr_title_validation_regex", err)
	}
	return re.MatchString(title), nil
}

func checksURL(host string, repo domain.Repository, number uint64) string {
	return "https://" + host + "/" + repo.Owner + "/" + repo.Name + "/pull/" + strconv.FormatUint(number, 10) + "/checks"
}

func determineChecksStatus(ctx context.Context, forge forgeapi.API, cfg Config, repo domain.Repository, pr domain.PullRequest, upstream forgeapi.PullRequest) (domain.ChecksStatus, error) {
	if !pr.ChecksEnabled {
		return domain.ChecksStatusSkipped, nil
	}

	runs, err := forge.CheckRunsList(ctx, repo.Owner, repo.Name, upstream.Head.SHA)
	if err != nil {
		return "", err
	}

	filtered := make([]forgeapi.CheckRun, 0, len(runs))
	for _, r := range runs {
		if r.App.Slug == cfg.CIAppSlug {
			filtered = append(filtered, r)
		}
	}

	latestByName := map[string]forgeapi.CheckRun{}
	for _, r := range filtered {
		existing, ok := latestByName[r.Name]
		if !ok || r.StartedAt.After(existing.StartedAt) {
			latestByName[r.Name] = r
		}
	}

	if len(latestByName) == 0 {
		if cfg.WaitForInitialChecks {
			return domain.ChecksStatusWaiting, nil
		}
		return domain.ChecksStatusSkipped, nil
	}

	anyWaiting := false
	anySuccess := false
	for _, r := range latestByName {
		if r.Conclusion == nil {
			anyWaiting = true
			continue
		}
		switch *r.Conclusion {
		case forgeapi.CheckConclusionFailure:
			return domain.ChecksStatusFail, nil
		case forgeapi.CheckConclusionSuccess:
			anySuccess = true
		}
	}
	if anyWaiting {
		return domain.ChecksStatusWaiting, nil
	}
	if anySuccess {
		return domain.ChecksStatusPass, nil
	}
	if cfg.WaitForInitialChecks {
		return domain.ChecksStatusWaiting, nil
	}
	return domain.ChecksStatusSkipped, nil
}

func resolveMergeStrategy(ctx context.Context, store storage.Storage, repo domain.Repository, pr domain.PullRequest, upstream forgeapi.PullRequest) (domain.MergeStrategy, error) {
	if pr.StrategyOverride != nil {
		return *pr.StrategyOverride, nil
	}

	base, head := upstream.Base.Ref, upstream.Head.Ref
	lookups := [][2]string{
		{base, head},
		{base, domain.Wildcard},
		{domain.Wildcard, head},
		{domain.Wildcard, domain.Wildcard},
	}
	for _, l := range lookups {
		rule, ok, err := store.MergeRulesGet(ctx, repo.ID, l[0], l[1])
		if err != nil {
			return "", err
		}
		if ok {
			return rule.Strategy, nil
		}
	}
	return repo.DefaultStrategy, nil
}

func latestReviewStates(ctx context.Context, forge forgeapi.API, repo domain.Repository, number uint64) (approved, changesRequired []string, err error) {
	reviews, err := forge.ReviewsList(ctx, repo.Owner, repo.Name, number)
	if err != nil {
		return nil, nil, err
	}

	latestByUser := map[string]forgeapi.Review{}
	for _, r := range reviews {
		existing, ok := latestByUser[r.User.Login]
		if !ok || r.SubmittedAt.After(existing.SubmittedAt) {
			latestByUser[r.User.Login] = r
		}
	}

	for login, r := range latestByUser {
		switch r.State {
		case forgeapi.ReviewStateApproved:
			approved = append(approved, login)
		case forgeapi.ReviewStateChangesRequested:
			changesRequired = append(changesRequired, login)
		}
	}
	sort.Strings(approved)
	sort.Strings(changesRequired)
	return approved, changesRequired, nil
}

func missingReviewers(required, approved []string) []string {
	approvedSet := make(map[string]struct{}, len(approved))
	for _, a := range approved {
		approvedSet[a] = struct{}{}
	}
	missing := make([]string, 0)
	for _, r := range required {
		if _, ok := approvedSet[r]; !ok {
			missing = append(missing, r)
		}
	}
	sort.Strings(missing)
	return missing
}
