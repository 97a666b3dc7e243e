package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/snonux/imageserver/internal/keys"
)

func noop(cmd *cobra.Command, args []string) error {
	return nil
}

func newTestRoot(t *testing.T, flags *Flags, h Handlers) *cobra.Command {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	return CreateRootCommand(flags, h)
}

func TestCreateRootCommand(t *testing.T) {
	flags := NewFlags()
	cmd := newTestRoot(t, flags, Handlers{Serve: noop, Search: noop, Bulk: noop, Keys: noop})

	if cmd.Use != "imageserver" {
		t.Errorf("Expected Use to be 'imageserver', got %s", cmd.Use)
	}
	if !strings.Contains(cmd.Short, "stock photo") {
		t.Errorf("Unexpected Short description %q", cmd.Short)
	}

	for _, name := range []string{"config", "base-dir", "public-dir", "log-level", "dev",
		"key-vault-url", "use-key-vault", "provider-timeout", "bulk-delay", "redis-addr", "cache-ttl"} {
		if cmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("Expected persistent flag %s to exist", name)
		}
	}

	subFlags := map[string][]string{
		"serve":  {"port"},
		"search": {"provider", "page", "per-page"},
		"bulk":   {"batch", "provider", "per-page"},
		"keys":   nil,
	}
	for sub, names := range subFlags {
		c, _, err := cmd.Find([]string{sub})
		if err != nil || c.Name() != sub {
			t.Errorf("Expected subcommand %s", sub)
			continue
		}
		for _, name := range names {
			if c.Flags().Lookup(name) == nil {
				t.Errorf("Expected flag %s on %s", name, sub)
			}
		}
	}
}

func TestCreateRootCommand_SearchAndBulkDefaultsAreIndependent(t *testing.T) {
	flags := NewFlags()
	newTestRoot(t, flags, Handlers{})

	if flags.PerPage != 20 || flags.BulkPerPage != 10 {
		t.Errorf("Expected per-page defaults 20 and 10, got %d and %d", flags.PerPage, flags.BulkPerPage)
	}
}

func TestCreateRootCommand_RunsHandler(t *testing.T) {
	flags := NewFlags()
	var gotArgs []string
	search := func(cmd *cobra.Command, args []string) error {
		gotArgs = args
		return nil
	}

	cmd := newTestRoot(t, flags, Handlers{Serve: noop, Search: search, Bulk: noop, Keys: noop})
	cmd.SetArgs([]string{"search", "mountain", "lake", "--provider", "pexels", "--per-page", "5"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if strings.Join(gotArgs, " ") != "mountain lake" {
		t.Errorf("Unexpected args %v", gotArgs)
	}
	if flags.Provider != "pexels" || flags.PerPage != 5 {
		t.Errorf("Expected flags to be parsed, got provider=%s per-page=%d", flags.Provider, flags.PerPage)
	}
}

func TestSearchCommandRequiresQuery(t *testing.T) {
	cmd := newTestRoot(t, NewFlags(), Handlers{Search: noop})
	cmd.SetArgs([]string{"search"})
	cmd.SetErr(&strings.Builder{})
	cmd.SetOut(&strings.Builder{})

	if err := cmd.Execute(); err == nil {
		t.Error("Expected error without query")
	}
}

func TestLoadConfig_FromFlags(t *testing.T) {
	flags := NewFlags()
	cmd := newTestRoot(t, flags, Handlers{Serve: noop})

	cmd.PersistentFlags().Set("base-dir", "/srv/site")
	cmd.PersistentFlags().Set("provider-timeout", "3s")
	cmd.PersistentFlags().Set("redis-addr", "localhost:6379")

	cfg := LoadConfig()

	if cfg.Layout.BaseDir != "/srv/site" || cfg.Layout.PublicDir != "public" {
		t.Errorf("Unexpected layout %+v", cfg.Layout)
	}
	if cfg.ProviderTimeout != 3*time.Second || cfg.BulkDelay != 500*time.Millisecond {
		t.Errorf("Unexpected timeouts %s, %s", cfg.ProviderTimeout, cfg.BulkDelay)
	}
	if cfg.RedisAddr != "localhost:6379" || cfg.CacheTTL != 10*time.Minute {
		t.Errorf("Unexpected cache settings %q, %s", cfg.RedisAddr, cfg.CacheTTL)
	}
	if cfg.Port != 3001 {
		t.Errorf("Expected default port 3001, got %d", cfg.Port)
	}
}

func TestInitConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "test-config.yaml")
	content := `keys:
  pexels: config-pexels
  pixabay: config-pixabay
server:
  port: 8081
vault:
  enabled: true
  url: https://example.vault.azure.net/`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config: %v", err)
	}

	newTestRoot(t, NewFlags(), Handlers{})
	InitConfig(cfgPath)

	cfg := LoadConfig()
	if cfg.Port != 8081 || !cfg.UseKeyVault || cfg.KeyVaultURL != "https://example.vault.azure.net/" {
		t.Errorf("Unexpected config %+v", cfg)
	}

	// Test environment variable prefix
	t.Setenv("IMAGESERVER_TEST_VAR", "test-value")
	if viper.GetString("test_var") != "test-value" {
		t.Error("Environment variable not properly loaded")
	}

	t.Setenv("IMAGESERVER_LOG_LEVEL", "debug")
	if got := LoadConfig().LogLevel; got != "debug" {
		t.Errorf("Expected prefixed env to override the flag default, got %s", got)
	}
}

func TestGetAPIKeys(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		config map[string]string
		want   keys.Set
	}{
		{
			name: "from environment",
			env:  map[string]string{"UNSPLASH_ACCESS_KEY": "u-env", "PEXELS_API_KEY": "p-env", "PIXABAY_API_KEY": "x-env"},
			want: keys.Set{Unsplash: "u-env", Pexels: "p-env", Pixabay: "x-env"},
		},
		{
			name: "legacy unsplash variable",
			env:  map[string]string{"UNSPLASH_API_KEY": "u-legacy"},
			want: keys.Set{Unsplash: "u-legacy"},
		},
		{
			name: "access key wins over legacy variable",
			env:  map[string]string{"UNSPLASH_ACCESS_KEY": "u-new", "UNSPLASH_API_KEY": "u-legacy"},
			want: keys.Set{Unsplash: "u-new"},
		},
		{
			name:   "environment wins over config",
			env:    map[string]string{"PEXELS_API_KEY": "p-env"},
			config: map[string]string{"keys.pexels": "p-config", "keys.pixabay": "x-config"},
			want:   keys.Set{Pexels: "p-env", Pixabay: "x-config"},
		},
		{
			name: "empty when neither set",
			want: keys.Set{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Cleanup(viper.Reset)

			for _, name := range []string{"UNSPLASH_ACCESS_KEY", "UNSPLASH_API_KEY", "PEXELS_API_KEY", "PIXABAY_API_KEY"} {
				t.Setenv(name, tt.env[name])
			}
			bindLegacyEnv()
			for k, v := range tt.config {
				viper.SetDefault(k, v)
			}

			if got := GetAPIKeys(); got != tt.want {
				t.Errorf("GetAPIKeys() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
