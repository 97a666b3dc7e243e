package cli

import "time"

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile     string
	BaseDir     string
	PublicDir   string
	LogLevel    string
	Development bool

	// Provider flags
	KeyVaultURL     string
	UseKeyVault     bool
	ProviderTimeout time.Duration
	BulkDelay       time.Duration

	// Cache flags
	RedisAddr string
	CacheTTL  time.Duration

	// Server flags
	Port int

	// Search flags, shared by search and bulk
	Provider    string
	Page        int
	PerPage     int
	BulkPerPage int
	BatchFile   string
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		BaseDir:         ".",
		PublicDir:       "public",
		LogLevel:        "info",
		ProviderTimeout: 15 * time.Second,
		BulkDelay:       500 * time.Millisecond,
		CacheTTL:        10 * time.Minute,
		Port:            3001,
		Provider:        "all",
		Page:            1,
		PerPage:         20,
		BulkPerPage:     10,
	}
}
