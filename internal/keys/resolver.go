package keys

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SecretStore fetches a named secret from a vault
type SecretStore interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// SecretNames maps each provider to its secret name in the vault
var SecretNames = map[Provider]string{
	Unsplash: "unsplash-access-key",
	Pexels:   "pexels-api-key",
	Pixabay:  "pixabay-api-key",
}

const defaultSecretTimeout = 10 * time.Second

// Resolver builds key sets from the vault and a fallback set
type Resolver struct {
	store   SecretStore // nil disables the vault lookup
	logger  *zap.Logger
	timeout time.Duration
}

// NewResolver creates a resolver. A nil store means environment-only
// resolution.
func NewResolver(store SecretStore, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		store:   store,
		logger:  logger,
		timeout: defaultSecretTimeout,
	}
}

// Resolve returns the key set. Vault values win; any key the vault could
// not supply is taken from fallback. Vault errors are logged and never
// returned so the server can always start, possibly in demo mode.
func (r *Resolver) Resolve(ctx context.Context, fallback Set) Set {
	var resolved Set

	if r.store != nil {
		resolved = r.fromVault(ctx)
	}

	for _, p := range Providers {
		if resolved.Get(p) != "" {
			continue
		}
		if key := fallback.Get(p); key != "" {
			resolved = resolved.With(p, key)
		}
	}

	if len(resolved.Available()) == 0 {
		r.logger.Warn("no provider keys available, running in demo mode")
	} else {
		r.logger.Info("provider keys resolved", zap.Stringer("keys", resolved))
	}
	return resolved
}

// Reload resolves a fresh set. The caller replaces everything built from
// the previous set; there is no partial update.
func (r *Resolver) Reload(ctx context.Context, fallback Set) Set {
	r.logger.Info("reloading provider keys")
	return r.Resolve(ctx, fallback)
}

func (r *Resolver) fromVault(ctx context.Context) Set {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var set Set
	for _, p := range Providers {
		name := SecretNames[p]
		value, err := r.store.GetSecret(ctx, name)
		if err != nil {
			r.logger.Warn("failed to fetch secret from vault",
				zap.String("provider", string(p)),
				zap.String("secret", name),
				zap.Error(err))
			continue
		}
		set = set.With(p, value)
	}
	return set
}
