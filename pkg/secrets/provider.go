package secrets

import "context"

// Provider looks up named secrets stored as flat JSON objects.
type Provider interface {
	// GetSecret returns the key/value map stored under name.
	GetSecret(ctx context.Context, name string) (map[string]string, error)

	// ListSecrets returns the names of all secrets starting with prefix.
	ListSecrets(ctx context.Context, prefix string) ([]string, error)
}
