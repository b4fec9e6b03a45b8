package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "memory", cfg.DatabaseType)
	assert.Equal(t, "memory", cfg.Storage.Type)
}

func TestLoadWithOptions(t *testing.T) {
	cfg, err := Load(
		WithPort("9000"),
		WithEnvironment("production"),
		WithAdminToken("tok"),
		WithFilesystemStorage("/tmp/data", "http://localhost/files"),
	)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "tok", cfg.AdminToken)
	assert.Equal(t, "fs", cfg.Storage.Type)
	assert.Equal(t, "/tmp/data", cfg.Storage.Config["base_dir"])
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{"defaults pass", nil, false},
		{"empty port fails", []Option{WithPort("")}, true},
		{"postgres without url fails", []Option{WithDatabase("postgres", "")}, true},
		{"unknown database type fails", []Option{WithDatabase("oracle", "x")}, true},
		{"postgres with url passes", []Option{WithDatabase("postgres", "postgresql://u:p@localhost/db")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.opts...)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestS3OptionsChain(t *testing.T) {
	cfg, err := Load(
		WithS3Storage("bucket", "eu-west-1", "https://cdn.example.com"),
		WithS3Credentials("key", "secret"),
		WithS3Endpoint("http://localhost:9000", true),
	)
	require.NoError(t, err)

	assert.Equal(t, "s3", cfg.Storage.Type)
	assert.Equal(t, "bucket", cfg.Storage.Config["bucket"])
	assert.Equal(t, "eu-west-1", cfg.Storage.Config["region"])
	assert.Equal(t, "key", cfg.Storage.Config["access_key_id"])
	assert.Equal(t, "http://localhost:9000", cfg.Storage.Config["endpoint"])
	assert.Equal(t, true, cfg.Storage.Config["use_path_style"])
}

func TestS3CredentialsRequireS3(t *testing.T) {
	_, err := Load(WithS3Credentials("key", "secret"))
	assert.Error(t, err)
}

func TestBuildServiceMemory(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	svc, err := cfg.BuildService(nil)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}
