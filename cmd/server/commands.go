package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/questboard-api/internal/config"
	"github.com/phrazzld/questboard-api/internal/domain"
	"github.com/phrazzld/questboard-api/internal/platform/logger"
	"github.com/phrazzld/questboard-api/internal/platform/postgres"
	"github.com/phrazzld/questboard-api/internal/service"
	"github.com/phrazzld/questboard-api/internal/service/auth"
	"github.com/spf13/cobra"
)

// errPostgresRequired is returned by commands that only make sense against
// a persistent store.
var errPostgresRequired = errors.New("this command requires database.driver=postgres")

type rootOptions struct {
	configFile string
}

// load reads the configuration and installs the default logger.
func (o *rootOptions) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadFile(o.configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("database_driver", cfg.Database.Driver))
	return cfg, log, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "questboard",
		Short:         "Task marketplace API with escrow ledger and live task chat",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default ./config.yaml)")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newMigrateCmd(opts))
	root.AddCommand(newSeedCmd(opts))
	root.AddCommand(newAccountCmd(opts))
	return root
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			app, err := newApplication(cmd.Context(), cfg, log, migrate)
			if err != nil {
				return err
			}
			return app.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|version|reset]",
		Short:     "Run database migrations (default up)",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: postgres.MigrationCommands,
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}

			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Database.Driver != "postgres" {
				return errPostgresRequired
			}

			db, err := postgres.Open(cmd.Context(), cfg.Database, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := db.Close(); err != nil {
					log.Error("failed to close database", slog.String("error", err.Error()))
				}
			}()
			return postgres.Migrate(cmd.Context(), db, command, log)
		},
	}
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	seed := &cobra.Command{Use: "seed", Short: "Insert fixture data"}
	seed.AddCommand(newSeedAccountCmd(opts))
	return seed
}

type seedAccountOptions struct {
	handle   string
	email    string
	password string
	fullName string
	balance  string
}

func newSeedAccountCmd(opts *rootOptions) *cobra.Command {
	in := &seedAccountOptions{}
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Create an account with an initial balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			balance, err := domain.ParseMoney(in.balance)
			if err != nil {
				return fmt.Errorf("invalid --balance: %w", err)
			}
			if balance < 0 {
				return fmt.Errorf("invalid --balance: must not be negative")
			}

			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Database.Driver != "postgres" {
				return errPostgresRequired
			}

			account, err := seedAccount(cmd.Context(), cfg, log, service.RegisterInput{
				Handle:         in.handle,
				Email:          in.email,
				Password:       in.password,
				FullName:       in.fullName,
				InitialBalance: balance,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created account %s (%s) with balance %s\n",
				account.ID, account.Handle, account.Balance)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.handle, "handle", "", "unique handle (3-50 characters)")
	cmd.Flags().StringVar(&in.email, "email", "", "email address")
	cmd.Flags().StringVar(&in.password, "password", "", "password (at least 8 characters)")
	cmd.Flags().StringVar(&in.fullName, "full-name", "", "optional display name")
	cmd.Flags().StringVar(&in.balance, "balance", "0", "initial balance, e.g. 150.00")
	for _, name := range []string{"handle", "email", "password"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func seedAccount(ctx context.Context, cfg *config.Config, log *slog.Logger, in service.RegisterInput) (*domain.Account, error) {
	accounts, closeFn, err := openAccountService(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	defer closeFn()
	return accounts.Register(ctx, in)
}

// openAccountService builds an AccountService over the postgres stores. The
// returned func closes the database.
func openAccountService(ctx context.Context, cfg *config.Config, log *slog.Logger) (service.AccountService, func(), error) {
	tokens, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	db, err := postgres.Open(ctx, cfg.Database, log)
	if err != nil {
		return nil, nil, err
	}
	stores := postgres.NewStores(db, log)
	closeFn := func() {
		if err := stores.Close(); err != nil {
			log.Error("failed to close database", slog.String("error", err.Error()))
		}
	}

	accounts := service.NewAccountService(stores.Accounts, tokens, auth.NewBcryptVerifier(cfg.Auth.BCryptCost),
		cfg.Auth.TokenLifetime(), log)
	return accounts, closeFn, nil
}

func newAccountCmd(opts *rootOptions) *cobra.Command {
	account := &cobra.Command{Use: "account", Short: "Administer existing accounts"}
	account.AddCommand(
		newSetActiveCmd(opts, "activate", "Allow an account to sign in again", true),
		newSetActiveCmd(opts, "deactivate", "Block an account from signing in and chatting", false),
	)
	return account
}

func newSetActiveCmd(opts *rootOptions, use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <account-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid account id %q: %w", args[0], err)
			}

			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Database.Driver != "postgres" {
				return errPostgresRequired
			}

			accounts, closeFn, err := openAccountService(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := accounts.SetActive(cmd.Context(), id, active); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "account %s %sd\n", id, use)
			return nil
		},
	}
}
