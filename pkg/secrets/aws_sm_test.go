package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSM struct {
	secrets map[string]string
	pages   [][]string
	getErr  error
	listed  int
}

func (m *mockSM) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.secrets[*in.SecretId]
	if !ok {
		return &secretsmanager.GetSecretValueOutput{}, nil
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(v)}, nil
}

func (m *mockSM) ListSecrets(_ context.Context, _ *secretsmanager.ListSecretsInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error) {
	page := m.pages[m.listed]
	m.listed++
	out := &secretsmanager.ListSecretsOutput{}
	for _, name := range page {
		out.SecretList = append(out.SecretList, types.SecretListEntry{Name: aws.String(name)})
	}
	if m.listed < len(m.pages) {
		out.NextToken = aws.String("next")
	}
	return out, nil
}

func TestAWSProvider_GetSecret(t *testing.T) {
	p := NewAWSProviderWithClient(&mockSM{secrets: map[string]string{
		"dev/arcola/arcgis": `{"username":"admin","password":"s3cret"}`,
	}})

	got, err := p.GetSecret(context.Background(), "dev/arcola/arcgis")
	require.NoError(t, err)
	assert.Equal(t, "admin", got["username"])
	assert.Equal(t, "s3cret", got["password"])
}

func TestAWSProvider_GetSecret_InvalidJSON(t *testing.T) {
	p := NewAWSProviderWithClient(&mockSM{secrets: map[string]string{"k": "not-json"}})

	_, err := p.GetSecret(context.Background(), "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid secret format")
}

func TestAWSProvider_GetSecret_NoStringValue(t *testing.T) {
	p := NewAWSProviderWithClient(&mockSM{secrets: map[string]string{}})

	_, err := p.GetSecret(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no string value")
}

func TestAWSProvider_GetSecret_ClientError(t *testing.T) {
	p := NewAWSProviderWithClient(&mockSM{getErr: errors.New("access denied")})

	_, err := p.GetSecret(context.Background(), "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestAWSProvider_ListSecrets_Paginates(t *testing.T) {
	sm := &mockSM{pages: [][]string{
		{"dev/arcola/arcgis", "dev/gisprod/arcgis"},
		{"dev/gistest/arcgis"},
	}}
	p := NewAWSProviderWithClient(sm)

	names, err := p.ListSecrets(context.Background(), "dev/")
	require.NoError(t, err)
	assert.Equal(t, []string{"dev/arcola/arcgis", "dev/gisprod/arcgis", "dev/gistest/arcgis"}, names)
	assert.Equal(t, 2, sm.listed)
}
