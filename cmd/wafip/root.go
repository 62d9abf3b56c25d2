package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bcnelson/waf-ipset-manager/internal/config"
	"github.com/bcnelson/waf-ipset-manager/internal/domain"
	"github.com/bcnelson/waf-ipset-manager/internal/service"
	"github.com/bcnelson/waf-ipset-manager/internal/storage"
	"github.com/bcnelson/waf-ipset-manager/internal/storage/memory"
	"github.com/bcnelson/waf-ipset-manager/internal/storage/sql"
	"github.com/bcnelson/waf-ipset-manager/internal/waf"
)

// options are the persistent flags shared by every subcommand. Non-empty
// values override the environment.
type options struct {
	ipset   string
	profile string
	region  string
	scope   string
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "wafip",
		Short:         "Add and remove addresses in AWS WAF IP sets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ipset, "ipset", "i", "", "IP set name")
	flags.StringVar(&opts.profile, "profile", "", "AWS shared config profile (overrides AWS_PROFILE)")
	flags.StringVar(&opts.region, "region", "", "AWS region (overrides AWS_REGION)")
	flags.StringVar(&opts.scope, "scope", "", "WAF scope, REGIONAL or CLOUDFRONT (overrides WAF_SCOPE)")

	cmd.AddCommand(
		newAddCommand(opts),
		newRemoveCommand(opts),
		newShowCommand(opts),
		newHistoryCommand(opts),
		newServeCommand(opts),
		newVersionCommand(),
	)
	return cmd
}

func (o *options) requireIPSet() error {
	if o.ipset == "" {
		return errors.New("--ipset is required")
	}
	return nil
}

// config loads the environment and applies flag overrides.
func (o *options) config() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if o.profile != "" {
		cfg.AWS.Profile = o.profile
	}
	if o.region != "" {
		cfg.AWS.Region = o.region
	}
	if o.scope != "" {
		cfg.AWS.Scope = domain.Scope(strings.ToUpper(o.scope))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// app bundles what a command needs to talk to WAF.
type app struct {
	cfg   *config.Config
	log   *logrus.Logger
	store storage.Storage
	svc   *service.UpdateService
}

func (o *options) newApp(ctx context.Context) (*app, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	log := cfg.Log.NewLogger()

	var client waf.Client
	if cfg.UseFileShim() {
		log.Debugf("Using file shim for WAF API: %s", cfg.AWS.FileShim)
		client = waf.NewFileShim(cfg.AWS.FileShim, log)
	} else {
		c, err := waf.New(ctx, cfg.AWS.Profile, cfg.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("initializing WAF client: %w", err)
		}
		client = c
	}

	store, err := openStore(cfg.Database)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:   cfg,
		log:   log,
		store: store,
		svc:   service.NewUpdateService(client, cfg.AWS.Scope, store, cfg.Retry.Policy(), log),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// openStore returns the history store. Without a driver history lives in
// memory for the lifetime of the process.
func openStore(cfg config.DatabaseConfig) (storage.Storage, error) {
	if cfg.Driver == "" {
		return memory.New(), nil
	}

	// Create data directory if needed (for SQLite)
	if cfg.Driver == "sqlite3" {
		if dir := filepath.Dir(cfg.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("creating data directory: %w", err)
			}
		}
	}

	store, err := sql.New(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return store, nil
}
