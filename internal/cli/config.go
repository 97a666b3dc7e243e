package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"codeberg.org/snonux/imageserver/internal/keys"
	"codeberg.org/snonux/imageserver/internal/storage"
)

// Config is the resolved runtime configuration
type Config struct {
	Port            int
	Layout          storage.Layout
	LogLevel        string
	Development     bool
	KeyVaultURL     string
	UseKeyVault     bool
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CacheTTL        time.Duration
	ProviderTimeout time.Duration
	BulkDelay       time.Duration
}

// InitConfig initializes viper configuration
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".imageserver" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".imageserver")
	}

	// Environment variables
	viper.SetEnvPrefix("IMAGESERVER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	bindLegacyEnv()

	// Read config file
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// bindLegacyEnv maps the unprefixed variables deployments already set
func bindLegacyEnv() {
	viper.BindEnv("keys.unsplash", "UNSPLASH_ACCESS_KEY", "UNSPLASH_API_KEY")
	viper.BindEnv("keys.pexels", "PEXELS_API_KEY")
	viper.BindEnv("keys.pixabay", "PIXABAY_API_KEY")
	viper.BindEnv("vault.url", "KEY_VAULT_URL")
	viper.BindEnv("vault.enabled", "USE_KEY_VAULT")
	viper.BindEnv("server.port", "PORT")
	viper.BindEnv("redis.addr", "REDIS_ADDR")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
}

// LoadConfig reads the configuration from flags, environment and the
// config file
func LoadConfig() Config {
	return Config{
		Port: viper.GetInt("server.port"),
		Layout: storage.Layout{
			BaseDir:   viper.GetString("storage.base_dir"),
			PublicDir: viper.GetString("storage.public_dir"),
		},
		LogLevel:        viper.GetString("log.level"),
		Development:     viper.GetBool("log.development"),
		KeyVaultURL:     viper.GetString("vault.url"),
		UseKeyVault:     viper.GetBool("vault.enabled"),
		RedisAddr:       viper.GetString("redis.addr"),
		RedisPassword:   viper.GetString("redis.password"),
		RedisDB:         viper.GetInt("redis.db"),
		CacheTTL:        viper.GetDuration("cache.ttl"),
		ProviderTimeout: viper.GetDuration("providers.timeout"),
		BulkDelay:       viper.GetDuration("providers.bulk_delay"),
	}
}

// GetAPIKeys returns the provider keys from environment or config. They
// are the fallback when the key vault is disabled or incomplete.
func GetAPIKeys() keys.Set {
	return keys.Set{
		Unsplash: viper.GetString("keys.unsplash"),
		Pexels:   viper.GetString("keys.pexels"),
		Pixabay:  viper.GetString("keys.pixabay"),
	}
}
