package vault

import (
	"context"
	"path/filepath"
	"testing"

	"qvcs-go/internal/config"
)

func TestNewVaultFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.VaultConfig
		wantErr bool
	}{
		{
			name: "memory vault",
			cfg:  config.VaultConfig{Type: "memory", Name: "test-memory"},
		},
		{
			name: "filesystem vault",
			cfg: config.VaultConfig{
				Type:        "filesystem",
				Name:        "test-fs",
				FSVaultRoot: filepath.Join(t.TempDir(), "vault"),
			},
		},
		{
			name:    "filesystem vault without root",
			cfg:     config.VaultConfig{Type: "filesystem", Name: "test-fs"},
			wantErr: true,
		},
		{
			name:    "s3 vault without bucket",
			cfg:     config.VaultConfig{Type: "s3", Name: "test-s3"},
			wantErr: true,
		},
		{
			name:    "unknown vault type",
			cfg:     config.VaultConfig{Type: "unknown", Name: "test-unknown"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewVaultFromConfig(context.Background(), tt.cfg)

			if (err != nil) != tt.wantErr {
				t.Fatalf("NewVaultFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if got != nil {
					t.Errorf("NewVaultFromConfig() = %v, want nil on error", got)
				}
				return
			}

			if err := got.ValidateSetup(context.Background()); err != nil {
				t.Errorf("ValidateSetup() error = %v", err)
			}
		})
	}
}

func TestNewVaultFromConfig_S3(t *testing.T) {
	got, err := NewVaultFromConfig(context.Background(), config.VaultConfig{
		Type:              "s3",
		Name:              "offsite",
		S3Bucket:          "snapshots",
		S3Prefix:          "team",
		S3Region:          "eu-west-1",
		S3Endpoint:        "http://127.0.0.1:9000",
		S3AccessKeyID:     "AKID",
		S3SecretAccessKey: "SECRET",
	})
	if err != nil {
		t.Fatalf("NewVaultFromConfig() error = %v", err)
	}
	v, ok := got.(*S3Vault)
	if !ok {
		t.Fatalf("NewVaultFromConfig() = %T, want *S3Vault", got)
	}
	if key := v.key("server-1", "qvcs.db"); key != "team/snapshots/server-1/qvcs.db" {
		t.Errorf("key() = %q, want team/snapshots/server-1/qvcs.db", key)
	}
}
