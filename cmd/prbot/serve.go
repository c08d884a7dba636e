package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sharingcloud/prbot/command"
	"github.com/sharingcloud/prbot/config"
	"github.com/sharingcloud/prbot/forgeapi"
	forgegithub "github.com/sharingcloud/prbot/forgeapi/github"
	forgememory "github.com/sharingcloud/prbot/forgeapi/memory"
	"github.com/sharingcloud/prbot/lock"
	lockmemory "github.com/sharingcloud/prbot/lock/memory"
	"github.com/sharingcloud/prbot/lock/redislock"
	"github.com/sharingcloud/prbot/prerr"
	"github.com/sharingcloud/prbot/reconcile"
	"github.com/sharingcloud/prbot/server"
	"github.com/sharingcloud/prbot/status"
	"github.com/sharingcloud/prbot/storage"
	storagememory "github.com/sharingcloud/prbot/storage/memory"
	storagesql "github.com/sharingcloud/prbot/storage/sql"
	"github.com/sharingcloud/prbot/webhook"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	store, closeStore, err := buildStorage(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	forge, err := buildForge(cfg)
	if err != nil {
		return err
	}

	l := buildLock(cfg)

	statusCfg := status.Config{
		CIAppSlug:            cfg.Forge.CIAppSlug,
		WaitForInitialChecks: cfg.Defaults.WaitForInitialChecks,
		ForgeHost:            cfg.Forge.Host,
	}

	reconciler := &reconcile.Reconciler{Store: store, Forge: forge, Lock: l, Status: statusCfg}
	authz := &command.StorageAuthorizer{Accounts: store, Forge: forge}

	router := &webhook.Router{
		Store:              store,
		Forge:              forge,
		Reconciler:         reconciler,
		Authz:              authz,
		BotName:            cfg.Forge.BotName,
		CIAppSlug:          cfg.Forge.CIAppSlug,
		RepositoryDefaults: cfg.RepositoryDefaults(),
		Rand:               rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	mux := server.New(server.Deps{
		Store:             store,
		Forge:             forge,
		Lock:              l,
		Router:            router,
		Authz:             authz,
		BotName:           cfg.Forge.BotName,
		WebhookSecret:     []byte(cfg.Server.WebhookSecret),
		SignatureHeader:   "X-Hub-Signature-256",
		AdminPublicKeyPEM: []byte(cfg.Server.AdminPublicKey),
		ExternalKeyLookup: externalKeyLookup(store),
	})
	handler := server.Handler(mux)

	addr := fmt.Sprintf("%s:%d", cfg.Server.BindIP, cfg.Server.BindPort)
	logrus.WithField("addr", addr).Info("prbot listening")
	return http.ListenAndServe(addr, handler)
}

func externalKeyLookup(store storage.Storage) server.ExternalPublicKeyLookup {
	return func(ctx context.Context, username string) ([]byte, bool, error) {
		account, ok, err := store.ExternalAccountsGet(ctx, username)
		if err != nil || !ok {
			return nil, ok, err
		}
		return []byte(account.PublicKey), true, nil
	}
}

func buildLock(cfg config.Config) lock.Lock {
	switch cfg.Lock.Driver {
	case "redis":
		return redislock.New(cfg.Lock.Address)
	default:
		return lockmemory.New()
	}
}

func buildStorage(cfg config.Config) (storage.Storage, func(), error) {
	switch cfg.Storage.Driver {
	case "postgres", "sql":
		store, err := storagesql.Open(cfg.Storage.ConnectionString)
		if err != nil {
			return nil, nil, err
		}
		if err := store.Migrate(); err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return storagememory.New(), func() {}, nil
	}
}

func buildForge(cfg config.Config) (forgeapi.API, error) {
	switch cfg.Forge.Driver {
	case "github":
		client, err := forgegithub.New(forgegithub.Config{
			Host:           cfg.Forge.Endpoint,
			Token:          cfg.Forge.Token,
			AppID:          cfg.Forge.AppID,
			InstallationID: cfg.Forge.InstallationID,
			PrivateKeyPEM:  []byte(cfg.Forge.PrivateKey),
			CacheDir:       cfg.Forge.CacheDir,
			CacheSizeMB:    cfg.Forge.CacheSizeMB,
			OnAPICall:      server.IncGitHubAPICalls,
		})
		if err != nil {
			return nil, err
		}
		if cfg.Forge.TenorAPIKey != "" {
			client = client.WithTenor(forgegithub.TenorConfig{
				APIKey:    cfg.Forge.TenorAPIKey,
				Endpoint:  cfg.Forge.TenorEndpoint,
				OnAPICall: server.IncTenorAPICalls,
			})
		}
		return client, nil
	case "memory", "":
		return forgememory.New(), nil
	default:
		return nil, prerr.Config("unknown forge driver: "+cfg.Forge.Driver, nil)
	}
}
