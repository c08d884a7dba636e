// Package github is the production forgeapi.API backed by go-github,
// grounded on mungegithub/github/github.go's transport chain: an
// httpcache layer (disk-backed via diskv/diskcache when a cache
// directory is configured, in-memory otherwise) wrapped by an
// oauth2.Transport carrying either a static token or a GitHub App
// installation token.
package github

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/go-github/v53/github"
	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
	"github.com/peterbourgon/diskv"
	"golang.org/x/oauth2"

	jwt "github.com/dgrijalva/jwt-go/v4"

	"github.com/sharingcloud/prbot/forgeapi"
	"github.com/sharingcloud/prbot/prerr"
)

// Config configures a production Client.
type Config struct {
	// Host is the API base URL; empty means github.com.
	Host string
	// Token, when set, authenticates as a static personal access
	// token instead of a GitHub App installation.
	Token string
	// AppID/PrivateKeyPEM/InstallationID configure GitHub App
	// installation-token auth, used when Token is empty.
	AppID          int64
	PrivateKeyPEM  []byte
	InstallationID int64
	// CacheDir, when set, backs the HTTP cache with a diskv store
	// instead of an in-memory one (mirrors mungegithub's HTTPCacheDir).
	CacheDir     string
	CacheSizeMB  int64
	OnAPICall    func()
}

// Client is a forgeapi.API backed by a real GitHub API.
type Client struct {
	gh        *github.Client
	onAPICall func()
	tenor     *tenorSearcher
}

var _ forgeapi.API = (*Client)(nil)

// New builds a Client per cfg.
func New(cfg Config) (*Client, error) {
	var transport http.RoundTripper = http.DefaultTransport

	var cacheTransport *httpcache.Transport
	if cfg.CacheDir != "" {
		maxBytes := cfg.CacheSizeMB * 1000000
		d := diskv.New(diskv.Options{
			BasePath:     cfg.CacheDir,
			CacheSizeMax: uint64(maxBytes),
		})
		cacheTransport = httpcache.NewTransport(diskcache.NewWithDiskv(d))
	} else {
		cacheTransport = httpcache.NewTransport(httpcache.NewMemoryCache())
	}
	cacheTransport.Transport = transport
	transport = cacheTransport

	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		transport = &oauth2.Transport{Base: transport, Source: oauth2.ReuseTokenSource(nil, ts)}
	} else if cfg.AppID != 0 {
		transport = &appInstallationTransport{
			base:           transport,
			appID:          cfg.AppID,
			installationID: cfg.InstallationID,
			privateKeyPEM:  cfg.PrivateKeyPEM,
		}
	}

	httpClient := &http.Client{Transport: transport}
	gh := github.NewClient(httpClient)
	if cfg.Host != "" {
		u, err := url.Parse(cfg.Host)
		if err != nil {
			return nil, prerr.Config("parse forge host", err)
		}
		gh.BaseURL = u
	}

	return &Client{gh: gh, onAPICall: cfg.OnAPICall}, nil
}

func (c *Client) count() {
	if c.onAPICall != nil {
		c.onAPICall()
	}
}

// appInstallationTransport signs a short-lived app JWT per mint and
// exchanges it for an installation token, caching the token until it
// is close to expiry.
type appInstallationTransport struct {
	base           http.RoundTripper
	appID          int64
	installationID int64
	privateKeyPEM  []byte

	token   string
	expires time.Time
}

func (t *appInstallationTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.token == "" || time.Now().After(t.expires.Add(-time.Minute)) {
		if err := t.refresh(req.Context()); err != nil {
			return nil, err
		}
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "token "+t.token)
	return t.base.RoundTrip(clone)
}

func (t *appInstallationTransport) refresh(ctx context.Context) error {
	appJWT, err := mintAppJWT(t.appID, t.privateKeyPEM)
	if err != nil {
		return err
	}
	appClient := github.NewClient(&http.Client{Transport: &oauth2.Transport{
		Base:   http.DefaultTransport,
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: appJWT, TokenType: "Bearer"}),
	}})
	installToken, _, err := appClient.Apps.CreateInstallationToken(ctx, t.installationID, nil)
	if err != nil {
		return prerr.ForgeAPI(0, err.Error())
	}
	t.token = installToken.GetToken()
	t.expires = installToken.GetExpiresAt().Time
	return nil
}

func mintAppJWT(appID int64, privateKeyPEM []byte) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return "", prerr.Crypto("parse app private key", err)
	}
	now := time.Now()
	claims := jwt.StandardClaims{
		IssuedAt:  jwt.At(now.Add(-time.Minute)),
		ExpiresAt: jwt.At(now.Add(9 * time.Minute)),
		Issuer:    strconv.FormatInt(appID, 10),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", prerr.Crypto("sign app jwt", err)
	}
	return signed, nil
}

// InstallationTokenCreate mints a fresh installation token for
// installationID, for callers that need one directly.
func (c *Client) InstallationTokenCreate(ctx context.Context, installationID int64) (string, error) {
	c.count()
	tok, _, err := c.gh.Apps.CreateInstallationToken(ctx, installationID, nil)
	if err != nil {
		return "", prerr.ForgeAPI(0, err.Error())
	}
	return tok.GetToken(), nil
}
