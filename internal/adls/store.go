// Copyright (c) 2026 Netskope, Inc. All rights reserved.

package adls

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azdatalake"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azdatalake/filesystem"
	"github.com/netSkope/s3-adls-connector/internal/xfererr"
)

// DefaultEndpoint is the DFS endpoint template for an account name.
const DefaultEndpoint = "https://%s.dfs.core.windows.net"

// Store is the set of filesystem operations the destination needs. Errors
// are classified with xfererr kinds.
type Store interface {
	CheckFilesystem(ctx context.Context) error
	CreateDirectory(ctx context.Context, path string) error
	// UploadFile creates or replaces path with the content of local.
	UploadFile(ctx context.Context, path, local string) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// Config identifies the storage account and container. The key is held only
// for the lifetime of the client built from it.
type Config struct {
	AccountName string
	AccountKey  string
	Container   string
	// Endpoint overrides the DFS endpoint, e.g. for Azurite. It may contain
	// a %s placeholder for the account name.
	Endpoint string
}

// AzureStore implements Store on an ADLS Gen2 filesystem.
type AzureStore struct {
	client *filesystem.Client
}

// NewAzureStore builds a shared-key filesystem client. SDK retries are
// disabled; each request is attempted once.
func NewAzureStore(cfg Config) (*AzureStore, error) {
	switch {
	case cfg.AccountName == "":
		return nil, fmt.Errorf("azure account name is required")
	case cfg.AccountKey == "":
		return nil, fmt.Errorf("azure account key is required")
	case cfg.Container == "":
		return nil, fmt.Errorf("azure container is required")
	}

	cred, err := azdatalake.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, xfererr.New(xfererr.KindAuth, "create azure credential", err)
	}

	client, err := filesystem.NewClientWithSharedKeyCredential(FilesystemURL(cfg), cred, &filesystem.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{MaxRetries: -1},
		},
	})
	if err != nil {
		return nil, xfererr.New(xfererr.KindConnection, "create azure client", err)
	}
	return &AzureStore{client: client}, nil
}

// FilesystemURL returns the URL of the configured container.
func FilesystemURL(cfg Config) string {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if strings.Contains(endpoint, "%s") {
		endpoint = fmt.Sprintf(endpoint, cfg.AccountName)
	}
	return strings.TrimSuffix(endpoint, "/") + "/" + cfg.Container
}

func (s *AzureStore) CheckFilesystem(ctx context.Context) error {
	if _, err := s.client.GetProperties(ctx, nil); err != nil {
		return classify("check container", err)
	}
	return nil
}

func (s *AzureStore) CreateDirectory(ctx context.Context, path string) error {
	_, err := s.client.NewDirectoryClient(path).Create(ctx, nil)
	if err == nil {
		return nil
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.ErrorCode == "PathAlreadyExists" {
		return nil
	}
	return classify("create directory "+path, err)
}

func (s *AzureStore) UploadFile(ctx context.Context, path, local string) error {
	f, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", local, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", local, err)
	}

	fc := s.client.NewFileClient(path)
	// Create replaces an existing file of the same name.
	if _, err := fc.Create(ctx, nil); err != nil {
		return classify("create file "+path, err)
	}
	if info.Size() == 0 {
		return nil
	}
	if err := fc.UploadFile(ctx, f, nil); err != nil {
		return classify("upload "+path, err)
	}
	return nil
}

func (s *AzureStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	resp, err := s.client.NewFileClient(path).DownloadStream(ctx, nil)
	if err != nil {
		return nil, classify("download "+path, err)
	}
	return resp.Body, nil
}

// classify maps Azure responses onto transfer error kinds.
func classify(op string, err error) error {
	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) {
		return xfererr.New(xfererr.KindConnection, op, err)
	}

	code := respErr.ErrorCode
	switch {
	case strings.Contains(code, "HierarchicalNamespace"), code == "UnsupportedAccountFeatures":
		return xfererr.New(xfererr.KindPermission, op, err)
	case code == "AuthorizationPermissionMismatch", code == "AuthorizationFailure",
		code == "InsufficientAccountPermissions", code == "AuthorizationSourceIPMismatch":
		return xfererr.New(xfererr.KindPermission, op, err)
	case code == "AuthenticationFailed", code == "InvalidAuthenticationInfo":
		return xfererr.New(xfererr.KindAuth, op, err)
	case code == "FilesystemNotFound", code == "ContainerNotFound", code == "PathNotFound",
		code == "ResourceNotFound":
		return xfererr.New(xfererr.KindNotFound, op, err)
	}

	switch respErr.StatusCode {
	case http.StatusUnauthorized:
		return xfererr.New(xfererr.KindAuth, op, err)
	case http.StatusForbidden:
		return xfererr.New(xfererr.KindPermission, op, err)
	case http.StatusNotFound:
		return xfererr.New(xfererr.KindNotFound, op, err)
	}
	return xfererr.New(xfererr.KindConnection, op, err)
}
