// Copyright (c) 2026 Netskope, Inc. All rights reserved.

package xfererr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := New(KindNotFound, "fetch", errors.New("NoSuchKey"))
	wrapped := fmt.Errorf("failed to process file: %w", err)

	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.False(t, errors.Is(wrapped, ErrAuth))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
}

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"op and cause", New(KindAuth, "list", errors.New("AccessDenied")), "AuthError: list: AccessDenied"},
		{"no op", New(KindConversion, "", errors.New("bad row")), "ConversionError: bad row"},
		{"nil cause", New(KindChecksumMismatch, "verify", nil), "ChecksumMismatch: verify: ChecksumMismatch"},
		{"formatted", Newf(KindPermission, "upload", "code %s", "AuthorizationPermissionMismatch"), "PermissionError: upload: code AuthorizationPermissionMismatch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestKindOf_Unclassified(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, "UnknownError", KindUnknown.String())
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := New(KindConnection, "upload", cause)
	assert.True(t, errors.Is(err, cause))
}
