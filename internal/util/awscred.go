// Copyright (c) 2026 Netskope, Inc. All rights reserved.

package util

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/goccy/go-json"
	"github.com/netSkope/s3-adls-connector/internal/xfererr"
)

// SecretsClient is the Secrets Manager call used to resolve keys.
type SecretsClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSCredentials are explicit credentials for building AWS clients. Empty
// keys fall back to the SDK default chain.
type AWSCredentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// NewSecretsClient builds a Secrets Manager client for region.
func NewSecretsClient(ctx context.Context, region string, creds AWSCredentials) (*secretsmanager.Client, error) {
	if region == "" {
		return nil, fmt.Errorf("region is required for Secrets Manager")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		config.WithRetryMaxAttempts(1),
	}
	if creds.AccessKeyID != "" && creds.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken),
		)))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create AWS config: %w", err)
	}
	return secretsmanager.NewFromConfig(awsCfg), nil
}

// GetAzureKeyFromSecretsManager retrieves a storage account key. The secret
// is either the bare key or a JSON object with an "account_key" (or "key")
// field.
func GetAzureKeyFromSecretsManager(ctx context.Context, client SecretsClient, secretName string) (string, error) {
	if secretName == "" {
		return "", fmt.Errorf("secret name is required for Secrets Manager")
	}

	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(secretName),
		VersionStage: aws.String("AWSCURRENT"),
	})
	if err != nil {
		return "", xfererr.New(xfererr.KindAuth, "get secret "+secretName, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret string empty for %s", secretName)
	}

	return parseAccountKey(secretName, *out.SecretString)
}

func parseAccountKey(secretName, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		if raw == "" {
			return "", fmt.Errorf("secret string empty for %s", secretName)
		}
		return raw, nil
	}

	var payload struct {
		AccountKey string `json:"account_key"`
		Key        string `json:"key"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", fmt.Errorf("parse secret json: %w", err)
	}
	switch {
	case payload.AccountKey != "":
		return payload.AccountKey, nil
	case payload.Key != "":
		return payload.Key, nil
	default:
		return "", fmt.Errorf("account_key field empty in secret %s", secretName)
	}
}

// ResolveAzureAccountKey returns key when set, otherwise looks it up in
// Secrets Manager with the client returned by newClient.
func ResolveAzureAccountKey(ctx context.Context, key, secretName string, newClient func(context.Context) (SecretsClient, error)) (string, error) {
	if key != "" {
		return key, nil
	}
	client, err := newClient(ctx)
	if err != nil {
		return "", err
	}
	return GetAzureKeyFromSecretsManager(ctx, client, secretName)
}
