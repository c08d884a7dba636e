package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sharingcloud/prbot/auth"
	"github.com/sharingcloud/prbot/domain"
	"github.com/sharingcloud/prbot/prerr"
)

// ExternalPublicKeyLookup resolves an external account's stored
// public key by username, for verifying its bearer token.
type ExternalPublicKeyLookup func(ctx context.Context, username string) ([]byte, bool, error)

type externalSetQAStatusRequest struct {
	RepositoryPath      string   `json:"repository_path"`
	PullRequestNumbers  []uint64 `json:"pull_request_numbers"`
	Author              string   `json:"author"`
	Status              *bool    `json:"status"`
}

func handleExternalSetQAStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token, ok := bearerToken(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			return
		}

		claims, username, err := verifyExternalToken(ctx, deps.ExternalKeyLookup, token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}
		_ = claims

		var req externalSetQAStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, prerr.JSON("decode request body", err))
			return
		}

		owner, name, ok := strings.Cut(req.RepositoryPath, "/")
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid repository_path"})
			return
		}

		repo, err := deps.Store.RepositoriesGetExpect(ctx, owner, name)
		if err != nil {
			writeError(w, err)
			return
		}

		hasRight, err := deps.Store.ExternalAccountHasRight(ctx, username, repo.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		if !hasRight {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "no right on this repository"})
			return
		}

		status := domain.QaStatusWaiting
		if req.Status != nil {
			if *req.Status {
				status = domain.QaStatusPass
			} else {
				status = domain.QaStatusFail
			}
		}

		for _, number := range req.PullRequestNumbers {
			if _, ok, err := deps.Store.PullRequestsGet(ctx, owner, name, number); err != nil {
				writeError(w, err)
				return
			} else if !ok {
				continue // missing PRs are silently skipped
			}

			if err := deps.Store.PullRequestsSetQAStatus(ctx, owner, name, number, status); err != nil {
				writeError(w, err)
				return
			}

			upstream, err := deps.Forge.PullRequestGet(ctx, owner, name, number)
			if err != nil {
				writeError(w, err)
				return
			}
			if _, err := deps.Router.Reconciler.Run(ctx, owner, name, number, upstream); err != nil {
				writeError(w, err)
				return
			}
		}

		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	return strings.TrimPrefix(header, prefix), true
}

func verifyExternalToken(ctx context.Context, lookup ExternalPublicKeyLookup, token string) (auth.ExternalClaims, string, error) {
	// The issuer claim names the external account; verification must
	// be against that specific account's public key, so we decode
	// unverified first to find the candidate, then verify for real.
	issuer, err := unverifiedIssuer(token)
	if err != nil {
		return auth.ExternalClaims{}, "", err
	}

	key, ok, err := lookup(ctx, issuer)
	if err != nil {
		return auth.ExternalClaims{}, "", err
	}
	if !ok {
		return auth.ExternalClaims{}, "", prerr.Auth("unknown external account")
	}

	claims, err := auth.VerifyExternal(key, token)
	if err != nil {
		return auth.ExternalClaims{}, "", err
	}
	return claims, issuer, nil
}

func unverifiedIssuer(token string) (string, error) {
	return auth.UnverifiedIssuer(token)
}
