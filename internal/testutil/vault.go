package testutil

import (
	"qvcs-go/internal/qvcs"
	"qvcs-go/internal/vault"
)

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() qvcs.Vault {
	return vault.NewMemoryVault("test-vault")
}
