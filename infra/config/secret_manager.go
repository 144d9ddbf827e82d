package config

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// SecretManagerResolver resolves secret references against GCP Secret Manager.
// References are full resource names:
// projects/{project}/secrets/{secret}/versions/{version}
type SecretManagerResolver struct {
	client *secretmanager.Client
}

// NewSecretManagerResolver creates a resolver using application default credentials
func NewSecretManagerResolver(ctx context.Context) (*SecretManagerResolver, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating secret manager client: %w", err)
	}
	return &SecretManagerResolver{client: client}, nil
}

// Resolve fetches the payload of the named secret version
func (r *SecretManagerResolver) Resolve(ctx context.Context, name string) (string, error) {
	if !strings.HasPrefix(name, "projects/") {
		return "", fmt.Errorf("secret reference %q is not a resource name", name)
	}
	if !strings.Contains(name, "/versions/") {
		name += "/versions/latest"
	}

	result, err := r.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	})
	if err != nil {
		return "", fmt.Errorf("accessing secret %s: %w", name, err)
	}

	return strings.TrimSpace(string(result.Payload.Data)), nil
}

// Close releases the underlying client
func (r *SecretManagerResolver) Close() error {
	return r.client.Close()
}
