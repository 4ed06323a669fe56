package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"crmcore/internal/app"
	"crmcore/internal/config"
	"crmcore/internal/migrate"
	"crmcore/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "crm",
	Short: "crmcore CLI",
	Long: `crmcore keeps pipeline boards (deals, tasks, tickets, growth hacks) and the links
between cards and contacts.
- Workspace: a directory holding crmcore.yml and .crmcore/crmcore.db.
- Cards live in stages and are sorted by a fractional order; dropping a card between two
  others gives it an order strictly between theirs, so only the moved card is written.
- Links (conformities) connect any two typed entities and are queried in both directions.
- Activity log: every board change, view with 'crm log tail'.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("CRMCORE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier recorded in the activity log")
	rootCmd.PersistentFlags().String("log-level", "", "log level (overrides crmcore.yml)")
	rootCmd.PersistentFlags().String("log-format", "", "log format text|json (overrides crmcore.yml)")
	for _, name := range []string{"workspace", "json", "actor-id", "log-level", "log-format"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(cardCmd())
	rootCmd.AddCommand(contactCmd())
	rootCmd.AddCommand(linkCmd())
	rootCmd.AddCommand(logCmd())
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create crmcore.yml and the workspace database",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.MkdirAll(workspace, 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				current, _, err := migrate.Status(ctx, rt.DB)
				if err != nil {
					return err
				}
				out := map[string]any{"config": path, "schema_version": current}
				if viper.GetBool("json") {
					return printJSON(out)
				}
				fmt.Printf("Wrote %s\nSchema version: %d\n", path, current)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing crmcore.yml")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show schema version and configured types",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				current, latest, err := migrate.Status(ctx, rt.DB)
				if err != nil {
					return err
				}
				out := map[string]any{
					"schema_version": current,
					"latest_version": latest,
					"card_types":     rt.Config.CardTypeNames(),
					"contact_types":  rt.Config.ContactTypeNames(),
				}
				if viper.GetBool("json") {
					return printJSON(out)
				}
				fmt.Printf("Schema: %d/%d\n", current, latest)
				fmt.Printf("Card types: %s\n", strings.Join(rt.Config.CardTypeNames(), ", "))
				fmt.Printf("Contact types: %s\n", strings.Join(rt.Config.ContactTypeNames(), ", "))
				return nil
			})
		},
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				addr := viper.GetString("addr")
				if addr == "" {
					addr = rt.Config.Server.Addr
				}
				basePath := viper.GetString("base-path")
				if basePath == "" {
					basePath = rt.Config.Server.BasePath
				}
				handler, err := server.New(server.Config{Engine: rt.Engine, BasePath: basePath, Logger: rt.Logger})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				rt.Logger.Info("serving crmcore API", "addr", addr, "base_path", basePath)
				fmt.Printf("Serving crmcore API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().String("addr", "", "listen address (default from crmcore.yml)")
	cmd.Flags().String("base-path", "", "API base path (default from crmcore.yml)")
	_ = viper.BindPFlag("addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("base-path", cmd.Flags().Lookup("base-path"))
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Activity log",
		Long:  "Everything that happened on the boards: creates, moves, archives, merges and link edits.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var contentType, contentID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show the latest activity entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				items, err := rt.Engine.Activity(ctx, contentType, contentID, n)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("Time", "Action", "Type", "ID", "Actor")
				for _, l := range items {
					tw.AppendRow(row(l.CreatedAt, l.Action, l.ContentType, l.ContentID, l.CreatedBy))
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&n, "limit", "n", 20, "number of entries")
	cmd.Flags().StringVar(&contentType, "type", "", "content type filter")
	cmd.Flags().StringVar(&contentID, "id", "", "content id filter")
	return cmd
}

// --- helpers ---

func withRuntime(ctx context.Context, fn func(context.Context, *app.Runtime) error) error {
	rt, err := app.Open(ctx, app.Options{
		Workspace: viper.GetString("workspace"),
		LogLevel:  viper.GetString("log-level"),
		LogFormat: viper.GetString("log-format"),
	})
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt)
}
