// Copyright (c) 2026 Netskope, Inc. All rights reserved.

package util

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/netSkope/s3-adls-connector/internal/xfererr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets struct {
	values map[string]string
	err    error
	calls  int
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.values[aws.ToString(in.SecretId)]
	if !ok {
		return &secretsmanager.GetSecretValueOutput{}, nil
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(v)}, nil
}

func TestGetAzureKeyFromSecretsManager(t *testing.T) {
	client := &fakeSecrets{values: map[string]string{
		"plain":   "  a2V5LXBsYWlu  ",
		"json":    `{"account_key": "a2V5LWpzb24="}`,
		"alt":     `{"key": "a2V5LWFsdA=="}`,
		"nofield": `{"password": "x"}`,
		"broken":  `{"account_key": `,
	}}

	tests := []struct {
		name    string
		secret  string
		want    string
		wantErr bool
	}{
		{"plain string", "plain", "a2V5LXBsYWlu", false},
		{"json account_key", "json", "a2V5LWpzb24=", false},
		{"json key", "alt", "a2V5LWFsdA==", false},
		{"json without key", "nofield", "", true},
		{"invalid json", "broken", "", true},
		{"missing secret string", "absent", "", true},
		{"empty name", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GetAzureKeyFromSecretsManager(context.Background(), client, tt.secret)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetAzureKeyFromSecretsManager_AccessDenied(t *testing.T) {
	client := &fakeSecrets{err: errors.New("AccessDeniedException")}
	_, err := GetAzureKeyFromSecretsManager(context.Background(), client, "s")
	assert.ErrorIs(t, err, xfererr.ErrAuth)
}

func TestResolveAzureAccountKey(t *testing.T) {
	client := &fakeSecrets{values: map[string]string{"s": "from-secret"}}
	newClient := func(context.Context) (SecretsClient, error) { return client, nil }

	got, err := ResolveAzureAccountKey(context.Background(), "explicit", "s", newClient)
	require.NoError(t, err)
	assert.Equal(t, "explicit", got)
	assert.Zero(t, client.calls, "explicit key skips Secrets Manager")

	got, err = ResolveAzureAccountKey(context.Background(), "", "s", newClient)
	require.NoError(t, err)
	assert.Equal(t, "from-secret", got)

	_, err = ResolveAzureAccountKey(context.Background(), "", "s", func(context.Context) (SecretsClient, error) {
		return nil, errors.New("no region")
	})
	assert.Error(t, err)
}

func TestNewSecretsClient_RequiresRegion(t *testing.T) {
	_, err := NewSecretsClient(context.Background(), "", AWSCredentials{})
	assert.Error(t, err)
}
