package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	// keep a stray .env in the package dir from leaking in
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return home
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 100000, c.MaxRows)
	assert.Equal(t, 4, c.BatchWorkers)
	assert.Equal(t, ".", c.DecimalSeparator)
	assert.Contains(t, c.NullTokens, "NA")
	assert.True(t, c.UnitNormalize)
	assert.Equal(t, filepath.Join(home, ".tabscope", "workspaces"), c.WorkspacesDir)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_rows: 50\nsample_rows: 2\ndecimal_separator: \",\"\nthousands_separator: \".\"\n"), 0o644))
	t.Setenv("TABSCOPE_SAMPLE_ROWS", "9")
	t.Setenv("TABSCOPE_S3_ENDPOINT", "localhost:9000")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50, c.MaxRows)
	assert.Equal(t, 9, c.SampleRows)
	assert.Equal(t, ",", c.DecimalSeparator)
	assert.Equal(t, "localhost:9000", c.S3Endpoint)
}

func TestLoadDotEnv(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile(".env", []byte("TABSCOPE_BATCH_WORKERS=7\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("TABSCOPE_BATCH_WORKERS") })
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, c.BatchWorkers)
}

func TestLoadRejectsBadSeparators(t *testing.T) {
	isolate(t)
	t.Setenv("TABSCOPE_THOUSANDS_SEPARATOR", ".")
	_, err := Load("")
	assert.ErrorContains(t, err, "must differ")
}

func TestSetAndSaveRoundTrip(t *testing.T) {
	isolate(t)
	c, err := Load("")
	require.NoError(t, err)
	require.NoError(t, c.Set("max_rows", "25"))
	require.NoError(t, c.Set("s3_use_ssl", "false"))
	require.NoError(t, c.Set("null_tokens", "-,?"))
	assert.Error(t, c.Set("max_rows", "many"))
	assert.ErrorContains(t, c.Set("colour", "blue"), "unknown config key")

	require.NoError(t, Save(c, ""))
	again, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 25, again.MaxRows)
	assert.False(t, again.S3UseSSL)
	assert.Equal(t, []string{"-", "?"}, again.NullTokens)
}

func TestRedacted(t *testing.T) {
	c := Global{S3SecretKey: "s3cr3t"}
	assert.Equal(t, "***", c.Redacted().S3SecretKey)
	assert.Equal(t, "s3cr3t", c.S3SecretKey)
}
