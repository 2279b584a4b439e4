// Package config loads runtime options for test generation, grading runs,
// and score collection from a YAML file.
package config

import (
	"os"
	"strings"

	"sqlgrade/internal/runinfo"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Well-known artifact names shared by the generator, the grading runner,
// and the collector.
const (
	SampleTestsFile  = "sample_tests.json"
	EvalTestsFile    = "eval_tests.json.enc"
	DefaultKeyFile   = "grading.key"
	SolutionFile     = "solution.sql"
	ResultsSuffix    = "_results.json.enc"
	SubmissionSuffix = "_submission.zip"
)

// DBConfig holds the credentials for one MySQL database. The same shape is
// embedded in generated test suites under the reserved "_db_config" key.
type DBConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
	Database string `yaml:"database" json:"database"`
}

// Validate reports the first missing required credential field.
func (c DBConfig) Validate() error {
	switch {
	case c.Host == "":
		return errors.New("db config missing host")
	case c.Port == 0:
		return errors.New("db config missing port")
	case c.User == "":
		return errors.New("db config missing user")
	case c.Database == "":
		return errors.New("db config missing database")
	}
	return nil
}

// Config captures all runtime options.
type Config struct {
	// SampleDB backs practice suites; EvalDB backs evaluation suites.
	SampleDB  DBConfig           `yaml:"sample_db"`
	EvalDB    DBConfig           `yaml:"eval_db"`
	AnswerKey string             `yaml:"answer_key"`
	OutputDir string             `yaml:"output_dir"`
	KeyPath   string             `yaml:"key_path"`
	// AllowedAfter is an optional "HH:MM[:SS]" IST clock time stamped into
	// evaluation suites; grading refuses to run before it.
	AllowedAfter string `yaml:"allowed_after"`
	Storage   StorageConfig      `yaml:"storage"`
	Logging   Logging            `yaml:"logging"`
	RunInfo   *runinfo.BasicInfo `yaml:"-"`
}

// StorageConfig selects an optional cloud destination for submission
// archives.
type StorageConfig struct {
	S3  S3Config  `yaml:"s3"`
	GCS GCSConfig `yaml:"gcs"`
}

// S3Config configures S3-compatible uploads.
type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// GCSConfig configures Google Cloud Storage uploads.
type GCSConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	CredentialsFile string `yaml:"credentials_file"`
}

// Logging controls stdout logging behavior.
type Logging struct {
	Verbose bool `yaml:"verbose"`
}

// Load reads the config file at path, applying defaults for anything the
// file leaves unset.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}
	normalizeConfig(&cfg)
	cfg.RunInfo = runinfo.FromEnv()
	return cfg, nil
}

func defaultConfig() Config {
	return Config{
		SampleDB:  DBConfig{Host: "127.0.0.1", Port: 3306, User: "root"},
		EvalDB:    DBConfig{Host: "127.0.0.1", Port: 3306, User: "root"},
		AnswerKey: "answers.yaml",
		OutputDir: "dist",
		KeyPath:   DefaultKeyFile,
	}
}

func normalizeConfig(cfg *Config) {
	cfg.OutputDir = strings.TrimSpace(cfg.OutputDir)
	if cfg.OutputDir == "" {
		cfg.OutputDir = "dist"
	}
	cfg.KeyPath = strings.TrimSpace(cfg.KeyPath)
	if cfg.KeyPath == "" {
		cfg.KeyPath = DefaultKeyFile
	}
	cfg.AllowedAfter = strings.TrimSpace(cfg.AllowedAfter)
	if cfg.SampleDB.Port == 0 {
		cfg.SampleDB.Port = 3306
	}
	if cfg.EvalDB.Port == 0 {
		cfg.EvalDB.Port = 3306
	}
}
