// Package config loads the settings file controlling a conversion run.
// Settings live in a TOML file; credentials (AWS keys, the Sentry DSN, the
// MySQL password) are taken from the environment and never appear in it.
package config

import (
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/uga-libraries/aip-aptrust/metadata"
	"github.com/uga-libraries/aip-aptrust/pipeline"
)

// Config collects every setting for one deployment. Zero values fall back to
// the defaults applied by Load.
type Config struct {
	// BatchDir is the directory holding the extracted packages to process.
	BatchDir string `toml:"batch_dir"`

	// ErrorsDir is the holding-area directory created inside BatchDir for
	// failed packages.
	ErrorsDir string `toml:"errors_dir"`

	// Workers is the number of packages processed at once.
	Workers int `toml:"workers"`

	// SizeLimit is the maximum aggregate package size in bytes.
	SizeLimit int64 `toml:"size_limit"`

	// ConversionLog and RenameLog are the CSV log paths. Relative paths
	// are resolved against the working directory.
	ConversionLog string `toml:"conversion_log"`
	RenameLog     string `toml:"rename_log"`

	// Checker selects the external validation tool. When Tool is empty the
	// built-in validator is used.
	Checker CheckerConfig `toml:"checker"`

	// Metadata overrides the default values applied to bag metadata.
	Metadata MetadataConfig `toml:"metadata"`

	// MySQL is a dial string for a shared outcome database, e.g.
	// "user:password@tcp(localhost:3306)/dbname". When empty an embedded
	// QL database at QlPath is used instead; QlPath "memory" keeps it in
	// memory only.
	MySQL  string `toml:"mysql"`
	QlPath string `toml:"ql_path"`

	// S3 configures the receiving bucket for the fetch command.
	S3 S3Config `toml:"s3"`

	// Port is the status server's listen port.
	Port string `toml:"port"`
}

type CheckerConfig struct {
	Tool   string `toml:"tool"`
	Config string `toml:"config"`
}

type MetadataConfig struct {
	SourceOrganization string `toml:"source_organization"`
	SenderDescription  string `toml:"sender_description"`
	Collection         string `toml:"collection"`
	Title              string `toml:"title"`
	Access             string `toml:"access"`
	StorageOption      string `toml:"storage_option"`
}

type S3Config struct {
	Bucket     string `toml:"bucket"`
	Prefix     string `toml:"prefix"`
	Region     string `toml:"region"`
	StagingDir string `toml:"staging_dir"`
}

// Load reads the TOML file at path and applies defaults to anything not set.
// An empty path returns the default configuration.
func Load(path string) (*Config, error) {
	c := &Config{}
	if path != "" {
		if _, err := toml.DecodeFile(path, c); err != nil {
			return nil, errors.Wrap(err, "reading config")
		}
	}
	if c.BatchDir == "" {
		c.BatchDir = "."
	}
	if c.ErrorsDir == "" {
		c.ErrorsDir = pipeline.DefaultErrorsDir
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.SizeLimit <= 0 {
		c.SizeLimit = pipeline.MaxPackageSize
	}
	if c.ConversionLog == "" {
		c.ConversionLog = "conversion-log.csv"
	}
	if c.RenameLog == "" {
		c.RenameLog = "renaming.csv"
	}
	if c.QlPath == "" {
		c.QlPath = "aptrust.ql"
	}
	if c.Port == "" {
		c.Port = "14500"
	}
	if c.S3.StagingDir == "" {
		c.S3.StagingDir = "."
	}
	return c, nil
}

// Defaults returns the metadata defaults for this configuration, starting
// from the standard table and applying any overrides.
func (c *Config) Defaults() metadata.Defaults {
	d := metadata.DefaultTable()
	if v := c.Metadata.SourceOrganization; v != "" {
		d.SourceOrganization = v
	}
	if v := c.Metadata.SenderDescription; v != "" {
		d.SenderDescription = v
	}
	if v := c.Metadata.Collection; v != "" {
		d.Collection = v
	}
	if v := c.Metadata.Title; v != "" {
		d.Title = v
	}
	if v := c.Metadata.Access; v != "" {
		d.Access = v
	}
	if v := c.Metadata.StorageOption; v != "" {
		d.StorageOption = v
	}
	return d
}
