package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"codeberg.org/snonux/imageserver/internal/app"
	"codeberg.org/snonux/imageserver/internal/batch"
	"codeberg.org/snonux/imageserver/internal/cli"
	"codeberg.org/snonux/imageserver/internal/logging"
)

func main() {
	// Create flags instance
	flags := cli.NewFlags()

	// Create root command
	rootCmd := cli.CreateRootCommand(flags, cli.Handlers{
		Serve: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				return a.Serve(cmd.Context())
			})
		},
		Search: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				query := strings.Join(args, " ")
				return a.Search(cmd.Context(), cmd.OutOrStdout(), query, flags.Provider, flags.Page, flags.PerPage)
			})
		},
		Bulk: func(cmd *cobra.Command, args []string) error {
			queries, err := bulkQueries(flags.BatchFile, args)
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app.App) error {
				return a.Bulk(cmd.Context(), cmd.OutOrStdout(), queries, flags.Provider, flags.BulkPerPage)
			})
		},
		Keys: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				return a.PrintKeys(cmd.Context(), cmd.OutOrStdout())
			})
		},
	})

	// Set up command initialization
	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
	})

	// Execute command
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// withApp builds the logger and application from the resolved config and
// runs fn
func withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	cfg := cli.LoadConfig()

	logger, err := logging.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		return err
	}
	defer logger.Sync()

	a := app.New(cmd.Context(), cfg, logger)
	defer a.Close()

	if err := fn(a); err != nil {
		logger.Error("command failed", zap.String("command", cmd.Name()), zap.Error(err))
		return err
	}
	return nil
}

// bulkQueries reads queries from the batch file or the arguments
func bulkQueries(batchFile string, args []string) ([]string, error) {
	if batchFile != "" {
		return batch.ReadQueryFile(batchFile)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("no queries given: pass them as arguments or use --batch")
	}
	return args, nil
}
