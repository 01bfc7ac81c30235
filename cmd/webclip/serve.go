package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/webclip/core"
	"pkt.systems/webclip/httpapi"
	"pkt.systems/webclip/internal/appconfig"
	"pkt.systems/webclip/internal/backend"
	"pkt.systems/webclip/internal/idp"
	"pkt.systems/webclip/internal/kvstore"
	"pkt.systems/webclip/internal/pagebridge"
	"pkt.systems/webclip/internal/session"
	"pkt.systems/webclip/internal/tabstate"
	"pkt.systems/webclip/schema"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the capture coordinator",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}

			kv, err := kvstore.NewStoreWithLogger(cfg.StateDir, logger)
			if err != nil {
				return err
			}
			store := tabstate.New(kv, logger)

			browser, err := pagebridge.Connect(cmd.Context(), pagebridge.Config{
				Endpoint:  cfg.Browser.Endpoint,
				ExecPath:  cfg.Browser.ExecPath,
				Headless:  cfg.Browser.Headless,
				ScriptDir: filepath.Dir(cfg.Manifest.Path),
				Logger:    logger,
			})
			if err != nil {
				return err
			}
			defer browser.Close()

			provider := idp.New(idp.Config{
				AuthURL:     cfg.Identity.AuthURL,
				TokenURL:    cfg.Identity.TokenURL,
				ClientID:    cfg.Identity.ClientID,
				RedirectURL: cfg.Identity.RedirectURL,
				Scopes:      cfg.Identity.Scopes,
			}, logger)
			relay := session.New(provider, store, logger)

			svc, err := core.NewService(core.Config{
				SettleDelay: time.Duration(cfg.Router.SettleDelayMS) * time.Millisecond,
			}, core.ServiceDeps{
				Store:    store,
				Pages:    browser,
				Manifest: core.FileManifest{Path: cfg.Manifest.Path},
				Screens:  browser,
				Sessions: relay,
				Backend:  noteBackend{backend.New(cfg.Backend.BaseURL, logger)},
				Logger:   logger,
			})
			if err != nil {
				return err
			}

			server := httpapi.New(svc, logger)
			logger.Info("coordinator listening", "addr", cfg.HTTP.Addr)
			return httpapi.ListenAndServe(cmd.Context(), cfg.HTTP.Addr, server.Handler())
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file path")
	return cmd
}

// noteBackend narrows the backend client to the router's port.
type noteBackend struct {
	client *backend.Client
}

func (b noteBackend) CreateNote(ctx context.Context, session schema.Session, note schema.NoteDraft) (string, error) {
	saved, err := b.client.CreateNote(ctx, session, note)
	if err != nil {
		return "", err
	}
	return saved.ID, nil
}
