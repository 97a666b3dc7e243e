package keys

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

// AzureVault reads secrets from an Azure Key Vault
type AzureVault struct {
	client *azsecrets.Client
}

// NewAzureVault creates a vault client using the default Azure credential
// chain (environment, managed identity, CLI login)
func NewAzureVault(vaultURL string) (*AzureVault, error) {
	if vaultURL == "" {
		return nil, fmt.Errorf("key vault URL is required")
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure credential: %w", err)
	}

	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create key vault client: %w", err)
	}

	return &AzureVault{client: client}, nil
}

// GetSecret returns the latest version of the named secret
func (v *AzureVault) GetSecret(ctx context.Context, name string) (string, error) {
	resp, err := v.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", name, err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("secret %s has no value", name)
	}
	return *resp.Value, nil
}
