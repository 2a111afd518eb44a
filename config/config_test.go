package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uga-libraries/aip-aptrust/pipeline"
)

const sampleConfig = `
batch_dir = "/var/aptrust/batch"
workers = 4
size_limit = 1000000

[checker]
tool = "/usr/local/bin/apt_validate"
config = "/etc/aptrust/aptrust_config.json"

[metadata]
source_organization = "Example University"

[s3]
bucket = "receiving"
prefix = "deposits/"
staging_dir = "/var/aptrust/staging"
`

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	return path
}

func TestLoad(t *testing.T) {
	c, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	require.Equal(t, "/var/aptrust/batch", c.BatchDir)
	require.Equal(t, 4, c.Workers)
	require.Equal(t, int64(1000000), c.SizeLimit)
	require.Equal(t, "/usr/local/bin/apt_validate", c.Checker.Tool)
	require.Equal(t, "deposits/", c.S3.Prefix)

	// unset fields get defaults
	require.Equal(t, pipeline.DefaultErrorsDir, c.ErrorsDir)
	require.Equal(t, "conversion-log.csv", c.ConversionLog)
	require.Equal(t, "14500", c.Port)
}

func TestLoadEmptyPath(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ".", c.BatchDir)
	require.Equal(t, 1, c.Workers)
	require.Equal(t, int64(pipeline.MaxPackageSize), c.SizeLimit)
}

func TestLoadBadFile(t *testing.T) {
	_, err := Load(writeConfig(t, "workers = [not toml"))
	require.Error(t, err)
}

func TestDefaultsOverride(t *testing.T) {
	c, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	d := c.Defaults()
	require.Equal(t, "Example University", d.SourceOrganization)
	// untouched entries keep the standard table values
	require.Equal(t, "Institution", d.Access)
	require.Equal(t, "Glacier-Deep-OR", d.StorageOption)
}
