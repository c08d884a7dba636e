package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/sharingcloud/prbot/auth"
	"github.com/sharingcloud/prbot/domain"
	"github.com/sharingcloud/prbot/prerr"
	"github.com/sharingcloud/prbot/storage"
)

type adminContextKey struct{}

func adminAuthMiddleware(adminPublicKeyPEM []byte) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
				return
			}
			claims, err := auth.VerifyAdmin(adminPublicKeyPEM, token)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}
			ctx := context.WithValue(r.Context(), adminContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// accountWithRights adds the repositories an account holds external
// rights on to its JSON representation, per account.
type accountWithRights struct {
	domain.Account
	Rights []string `json:"rights"`
}

type externalAccountWithRights struct {
	domain.ExternalAccount
	Rights []string `json:"rights"`
}

// repositoryPathsByID resolves every repository once so each
// account's rights can be rendered as "owner/name" paths instead of
// raw repository ids.
func repositoryPathsByID(ctx context.Context, store storage.Storage) (map[uint64]string, error) {
	repos, err := store.RepositoriesAll(ctx)
	if err != nil {
		return nil, err
	}
	paths := make(map[uint64]string, len(repos))
	for _, repo := range repos {
		paths[repo.ID] = repo.Path()
	}
	return paths, nil
}

func accountRights(ctx context.Context, store storage.Storage, paths map[uint64]string, username string) ([]string, error) {
	rights, err := store.ExternalAccountRightsList(ctx, username)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rights))
	for _, right := range rights {
		if path, ok := paths[right.RepositoryID]; ok {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out, nil
}

func handleAdminAccounts(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accounts, err := deps.Store.AccountsAll(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		paths, err := repositoryPathsByID(r.Context(), deps.Store)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]accountWithRights, 0, len(accounts))
		for _, account := range accounts {
			rights, err := accountRights(r.Context(), deps.Store, paths, account.Username)
			if err != nil {
				writeError(w, err)
				return
			}
			out = append(out, accountWithRights{Account: account, Rights: rights})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleAdminRepositories(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		repos, err := deps.Store.RepositoriesAll(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, repos)
	}
}

func handleAdminExternalAccounts(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accounts, err := deps.Store.ExternalAccountsAll(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		paths, err := repositoryPathsByID(r.Context(), deps.Store)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]externalAccountWithRights, 0, len(accounts))
		for _, account := range accounts {
			rights, err := accountRights(r.Context(), deps.Store, paths, account.Username)
			if err != nil {
				writeError(w, err)
				return
			}
			out = append(out, externalAccountWithRights{ExternalAccount: account, Rights: rights})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleAdminCreateRule(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		repositoryID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
		if err != nil {
			writeError(w, prerr.JSON("invalid repository id", err))
			return
		}

		var rule domain.PullRequestRule
		if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
			writeError(w, prerr.JSON("decode pull request rule", err))
			return
		}
		rule.RepositoryID = repositoryID

		if err := deps.Store.PullRequestRulesSet(r.Context(), rule); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, rule)
	}
}

func handleAdminDeleteRule(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		repositoryID, err := strconv.ParseUint(vars["id"], 10, 64)
		if err != nil {
			writeError(w, prerr.JSON("invalid repository id", err))
			return
		}
		if err := deps.Store.PullRequestRulesDelete(r.Context(), repositoryID, vars["rule_name"]); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
