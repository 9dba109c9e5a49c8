package secrets

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/admin"
	pkgsecrets "github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/pkg/secrets"
)

// secretSuffix is the last segment of every ArcGIS credentials secret.
const secretSuffix = "arcgis"

// CredentialResolver looks up site administrator credentials in AWS Secrets
// Manager and caches them locally.
//
// Secret naming convention: {env}/{host}/arcgis, holding
// {"username": ..., "password": ..., "port": ..., "scheme": ...}.
// port and scheme are optional and fall back to the resolver defaults.
type CredentialResolver struct {
	logger      *zap.Logger
	env         string
	defaultPort int
	provider    pkgsecrets.Provider
	cache       *pkgsecrets.Cache[admin.Credentials]
}

// NewCredentialResolver constructs a resolver for one deployment environment.
func NewCredentialResolver(
	logger *zap.Logger,
	env string,
	defaultPort int,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[admin.Credentials],
) *CredentialResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialResolver{
		logger:      logger,
		env:         env,
		defaultPort: defaultPort,
		provider:    provider,
		cache:       cache,
	}
}

// SecretName returns the secret key for host.
func (r *CredentialResolver) SecretName(host string) string {
	return strings.ToLower(fmt.Sprintf("%s/%s/%s", r.env, host, secretSuffix))
}

// Resolve returns credentials for host, from cache when possible.
func (r *CredentialResolver) Resolve(ctx context.Context, host string) (admin.Credentials, error) {
	key := strings.ToLower(host)
	if creds, ok := r.cache.Get(key); ok {
		return creds, nil
	}

	name := r.SecretName(host)
	secret, err := r.provider.GetSecret(ctx, name)
	if err != nil {
		r.logger.Warn("aws.secret_fetch_failed",
			zap.String("key", name),
			zap.Error(err))
		return admin.Credentials{}, fmt.Errorf("resolve credentials for %q: %w", host, err)
	}

	creds, err := ParseCredentials(host, r.defaultPort, secret)
	if err != nil {
		return admin.Credentials{}, fmt.Errorf("parse secret %q: %w", name, err)
	}

	r.cache.Put(key, creds)
	r.logger.Info("aws.credentials_resolved",
		zap.String("server", creds.Server()),
		zap.String("user", creds.Username))
	return creds, nil
}

// Forget drops the cached credentials for host, e.g. after a password rotation.
func (r *CredentialResolver) Forget(host string) {
	r.cache.Bust(strings.ToLower(host))
}

// DiscoverServers lists the hosts that have a credentials secret in this
// environment, taken from the middle segment of {env}/{host}/arcgis.
func (r *CredentialResolver) DiscoverServers(ctx context.Context) ([]string, error) {
	prefix := strings.ToLower(r.env + "/")
	suffix := "/" + secretSuffix

	names, err := r.provider.ListSecrets(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("discover servers: %w", err)
	}

	var hosts []string
	for _, name := range names {
		lower := strings.ToLower(name)
		if !strings.HasPrefix(lower, prefix) || !strings.HasSuffix(lower, suffix) {
			continue
		}
		host := strings.TrimSuffix(strings.TrimPrefix(lower, prefix), suffix)
		if host != "" && !strings.Contains(host, "/") {
			hosts = append(hosts, host)
		}
	}

	r.logger.Info("aws.servers_discovered",
		zap.Int("count", len(hosts)),
		zap.Strings("servers", hosts))
	return hosts, nil
}

// ParseCredentials builds validated credentials for host from a secret map.
func ParseCredentials(host string, defaultPort int, secret map[string]string) (admin.Credentials, error) {
	creds := admin.Credentials{
		Username: secret["username"],
		Password: secret["password"],
		Host:     host,
		Port:     defaultPort,
		Scheme:   secret["scheme"],
	}
	if p := secret["port"]; p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return admin.Credentials{}, fmt.Errorf("invalid port %q", p)
		}
		creds.Port = port
	}
	if err := creds.Validate(); err != nil {
		return admin.Credentials{}, err
	}
	return creds, nil
}
