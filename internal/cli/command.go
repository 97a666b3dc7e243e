package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"codeberg.org/snonux/imageserver/internal"
)

// RunFunc runs one subcommand
type RunFunc func(cmd *cobra.Command, args []string) error

// Handlers are the implementations behind the subcommands
type Handlers struct {
	Serve  RunFunc
	Search RunFunc
	Bulk   RunFunc
	Keys   RunFunc
}

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags, h Handlers) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "imageserver",
		Short: "Multi-provider stock photo image server",
		Long: `imageserver searches Unsplash, Pexels and Pixabay through one API and
manages the local blog, showcase, service and training image tree.

Examples:
  imageserver serve --port 3001                # Run the HTTP server
  imageserver search "mountain lake"           # Search all available providers
  imageserver bulk --batch queries.txt         # Search many queries, one per line
  imageserver keys                             # Show which providers have keys`,
		Version:      internal.Version,
		SilenceUsage: true,
	}

	setupFlags(rootCmd, flags)

	rootCmd.AddCommand(
		createServeCommand(flags, h.Serve),
		createSearchCommand(flags, h.Search),
		createBulkCommand(flags, h.Bulk),
		createKeysCommand(h.Keys),
	)

	return rootCmd
}

func createServeCommand(flags *Flags, run RunFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE:  run,
	}
	cmd.Flags().IntVarP(&flags.Port, "port", "p", flags.Port, "Listening port")
	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	return cmd
}

func createSearchCommand(flags *Flags, run RunFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search stock photo providers and print the results as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE:  run,
	}
	cmd.Flags().StringVar(&flags.Provider, "provider", flags.Provider, "Provider: all, unsplash, pexels or pixabay")
	cmd.Flags().IntVar(&flags.Page, "page", flags.Page, "Result page")
	cmd.Flags().IntVar(&flags.PerPage, "per-page", flags.PerPage, "Results per page")
	return cmd
}

func createBulkCommand(flags *Flags, run RunFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk [query...]",
		Short: "Search several queries one after another",
		RunE:  run,
	}
	cmd.Flags().StringVar(&flags.BatchFile, "batch", "", "Read queries from file (one per line, # starts a comment)")
	cmd.Flags().StringVar(&flags.Provider, "provider", flags.Provider, "Provider: all, unsplash, pexels or pixabay")
	cmd.Flags().IntVar(&flags.BulkPerPage, "per-page", flags.BulkPerPage, "Results per query")
	return cmd
}

func createKeysCommand(run RunFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Resolve provider keys and show which providers are available",
		Args:  cobra.NoArgs,
		RunE:  run,
	}
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	pf := cmd.PersistentFlags()

	pf.StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.imageserver.yaml)")
	pf.StringVar(&flags.BaseDir, "base-dir", flags.BaseDir, "Directory holding images/{services,showcase,training,downloaded}")
	pf.StringVar(&flags.PublicDir, "public-dir", flags.PublicDir, "Public web root holding images/blog")
	pf.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn or error")
	pf.BoolVar(&flags.Development, "dev", false, "Human readable console logging")

	pf.StringVar(&flags.KeyVaultURL, "key-vault-url", "", "Azure Key Vault URL holding the provider keys")
	pf.BoolVar(&flags.UseKeyVault, "use-key-vault", false, "Resolve provider keys from the key vault first")
	pf.DurationVar(&flags.ProviderTimeout, "provider-timeout", flags.ProviderTimeout, "Timeout of a single provider search")
	pf.DurationVar(&flags.BulkDelay, "bulk-delay", flags.BulkDelay, "Pause between bulk search queries")

	pf.StringVar(&flags.RedisAddr, "redis-addr", "", "Redis address for the search cache (in-memory cache if empty)")
	pf.DurationVar(&flags.CacheTTL, "cache-ttl", flags.CacheTTL, "Lifetime of cached search results (0 disables caching)")

	bindFlagsToViper(pf)
}

// viperKeys maps persistent flag names to their config keys
var viperKeys = map[string]string{
	"base-dir":         "storage.base_dir",
	"public-dir":       "storage.public_dir",
	"log-level":        "log.level",
	"dev":              "log.development",
	"key-vault-url":    "vault.url",
	"use-key-vault":    "vault.enabled",
	"provider-timeout": "providers.timeout",
	"bulk-delay":       "providers.bulk_delay",
	"redis-addr":       "redis.addr",
	"cache-ttl":        "cache.ttl",
}

func bindFlagsToViper(fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		if key, ok := viperKeys[f.Name]; ok {
			viper.BindPFlag(key, f)
		}
	})
}
