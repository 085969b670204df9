package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-assignments-api/internal/app"
	"github.com/noah-isme/sma-assignments-api/internal/models"
	"github.com/noah-isme/sma-assignments-api/internal/service"
	"github.com/noah-isme/sma-assignments-api/internal/shadow"
	"github.com/noah-isme/sma-assignments-api/pkg/config"
	"github.com/noah-isme/sma-assignments-api/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Operational commands for the assignments API",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if driver, _ := cmd.Flags().GetString("store"); driver != "" {
				cfg.StoreDriver = driver
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			e.cfg, e.logger = cfg, logr
			return nil
		},
	}
	root.PersistentFlags().String("store", "", "override STORE_DRIVER (mongo or postgres)")

	root.AddCommand(newMigrateCmd(e), newUserCmd(e), newShadowCmd())
	return root
}

// withStores opens the configured backend for the duration of fn.
func (e *env) withStores(ctx context.Context, fn func(*app.Stores) error) error {
	stores, err := app.OpenStores(ctx, e.cfg, e.logger)
	if err != nil {
		return err
	}
	defer stores.Close(context.Background()) //nolint:errcheck
	return fn(stores)
}

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres schema or create Mongo indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withStores(cmd.Context(), func(s *app.Stores) error {
				fmt.Fprintf(cmd.OutOrStdout(), "%s store is up to date\n", s.Driver)
				return nil
			})
		},
	}
}

func newUserCmd(e *env) *cobra.Command {
	user := &cobra.Command{Use: "user", Short: "Manage dashboard accounts"}

	var req service.CreateUserRequest
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req.Active = true
			return e.withStores(cmd.Context(), func(s *app.Stores) error {
				created, err := service.NewUserService(s.Users, nil, e.logger).Create(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", created.Role, created.Email, created.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&req.Email, "email", "", "login email")
	create.Flags().StringVar(&req.FullName, "name", "", "full name")
	create.Flags().StringVar((*string)(&req.Role), "role", string(models.RoleStudent), "ADMIN, TEACHER or STUDENT")
	create.Flags().StringVar(&req.Password, "password", "", "initial password")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("password")

	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withStores(cmd.Context(), func(s *app.Stores) error {
				users, err := service.NewUserService(s.Users, nil, e.logger).List(cmd.Context())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLE\tACTIVE")
				for _, u := range users {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", u.ID, u.Email, u.FullName, u.Role, u.Active)
				}
				return w.Flush()
			})
		},
	}

	user.AddCommand(create, list)
	return user
}

func newShadowCmd() *cobra.Command {
	var (
		primary, candidate, token, targetsPath string
		timeout                                time.Duration
	)
	cmd := &cobra.Command{
		Use:   "shadow",
		Short: "Replay read-only requests against two deployments and diff the responses",
		RunE: func(cmd *cobra.Command, _ []string) error {
			targets := shadow.DefaultTargets
			if targetsPath != "" {
				loaded, err := shadow.LoadTargets(targetsPath)
				if err != nil {
					return err
				}
				targets = loaded
			}
			c := &shadow.Comparer{
				Client:    &http.Client{Timeout: timeout},
				Primary:   primary,
				Candidate: candidate,
				Token:     token,
			}
			results, breaking := c.Run(cmd.Context(), targets)
			shadow.WriteReport(cmd.OutOrStdout(), results)
			if breaking > 0 {
				return fmt.Errorf("%d critical diffs", breaking)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&primary, "primary", "http://localhost:8080", "base URL of the serving deployment")
	cmd.Flags().StringVar(&candidate, "candidate", "http://localhost:8081", "base URL of the deployment under test")
	cmd.Flags().StringVar(&token, "token", os.Getenv("SHADOW_TOKEN"), "bearer token sent to both deployments")
	cmd.Flags().StringVar(&targetsPath, "targets", "", "JSON targets file; defaults to the assignment read endpoints")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	return cmd
}
