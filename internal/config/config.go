// Copyright (c) 2026 Netskope, Inc. All rights reserved.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "S3ADLS_"

// DefaultConfigFile is read when present and --config-file is not given.
const DefaultConfigFile = "s3adls-config.yaml"

// Config holds all configuration for a run. Secret fields are only ever
// populated from flags, environment or Secrets Manager, never from the YAML
// file, and are never written anywhere.
type Config struct {
	// AWS / S3 source
	AWSRegion          string
	S3Bucket           string
	S3Endpoint         string // optional, e.g. LocalStack
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSSessionToken    string

	// Azure destination
	AzureAccountName string
	AzureContainer   string
	AzureEndpoint    string // optional DFS endpoint override
	AzureAccountKey  string
	// Secrets Manager secret holding the account key, used when
	// AzureAccountKey is empty.
	AzureKeySecret       string
	AzureKeySecretRegion string // defaults to AWSRegion

	// Transfer options
	ConvertToParquet   bool
	VerifyChecksum     bool
	ChecksumAlgorithm  string // Default: md5
	ParquetCompression string // Default: snappy
	CSVDelimiter       string // Default: ","
	ScratchDir         string // Default: system temp dir

	// Logging
	LogDir    string // Default: /tmp
	LogDebug  bool
	LogStdout bool

	ConfigFile string
}

// Flag names.
const (
	FlagConfigFile           = "config-file"
	FlagAWSRegion            = "aws-region"
	FlagS3Bucket             = "s3-bucket"
	FlagS3Endpoint           = "s3-endpoint"
	FlagAWSAccessKeyID       = "aws-access-key-id"
	FlagAWSSecretAccessKey   = "aws-secret-access-key"
	FlagAWSSessionToken      = "aws-session-token"
	FlagAzureAccountName     = "azure-account-name"
	FlagAzureContainer       = "azure-container"
	FlagAzureEndpoint        = "azure-endpoint"
	FlagAzureAccountKey      = "azure-account-key"
	FlagAzureKeySecret       = "azure-key-secret"
	FlagAzureKeySecretRegion = "azure-key-secret-region"
	FlagConvert              = "convert"
	FlagVerify               = "verify"
	FlagChecksumAlgorithm    = "checksum-algorithm"
	FlagParquetCompression   = "parquet-compression"
	FlagCSVDelimiter         = "csv-delimiter"
	FlagScratchDir           = "scratch-dir"
	FlagLogDir               = "log-dir"
	FlagDebug                = "debug"
	FlagLogStdout            = "log-stdout"
)

// RegisterFlags adds every configuration flag to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(FlagConfigFile, DefaultConfigFile, "Config file path")

	fs.String(FlagAWSRegion, "", "AWS region of the source bucket")
	fs.String(FlagS3Bucket, "", "Source S3 bucket name")
	fs.String(FlagS3Endpoint, "", "Custom S3 endpoint URL (optional, e.g. LocalStack)")
	fs.String(FlagAWSAccessKeyID, "", "AWS access key ID (default: SDK credential chain)")
	fs.String(FlagAWSSecretAccessKey, "", "AWS secret access key")
	fs.String(FlagAWSSessionToken, "", "AWS session token (optional)")

	fs.String(FlagAzureAccountName, "", "Azure storage account name")
	fs.String(FlagAzureContainer, "", "ADLS Gen2 container (file system) name")
	fs.String(FlagAzureEndpoint, "", "Custom DFS endpoint, %s is replaced by the account name (optional)")
	fs.String(FlagAzureAccountKey, "", "Azure storage account key")
	fs.String(FlagAzureKeySecret, "", "AWS Secrets Manager secret holding the Azure account key")
	fs.String(FlagAzureKeySecretRegion, "", "AWS region for Secrets Manager (default: --aws-region)")

	fs.Bool(FlagConvert, false, "Convert CSV and JSON files to Parquet before upload")
	fs.Bool(FlagVerify, false, "Compare checksums of uploaded files (advisory)")
	fs.String(FlagChecksumAlgorithm, "md5", "Checksum algorithm: md5 or xxhash")
	fs.String(FlagParquetCompression, "snappy", "Parquet compression: snappy, zstd, gzip or none")
	fs.String(FlagCSVDelimiter, ",", `CSV field delimiter (single character, "\t" for tab)`)
	fs.String(FlagScratchDir, "", "Parent directory for temporary files (default: system temp dir)")

	fs.String(FlagLogDir, "/tmp", "Directory for the log file")
	fs.Bool(FlagDebug, false, "Enable debug logging")
	fs.Bool(FlagLogStdout, false, "Log to stdout instead of a file")
}

// Load builds the configuration from a flag set populated by RegisterFlags.
// Priority: CLI flags > environment variables > YAML file > defaults
func Load(fs *pflag.FlagSet) (*Config, error) {
	cfg := &Config{}

	configFile, err := fs.GetString(FlagConfigFile)
	if err != nil {
		return nil, err
	}
	if val := os.Getenv(EnvPrefix + "CONFIG_FILE"); val != "" && !fs.Changed(FlagConfigFile) {
		configFile = val
	}
	cfg.ConfigFile = configFile

	// Load from YAML file if it exists
	if configFile != "" {
		if err := loadFromYAML(cfg, configFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Override with environment variables
	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}

	// Override with CLI flags (highest priority)
	if err := loadFromFlags(cfg, fs); err != nil {
		return nil, err
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.ChecksumAlgorithm == "" {
		c.ChecksumAlgorithm = "md5"
	}
	if c.ParquetCompression == "" {
		c.ParquetCompression = "snappy"
	}
	if c.CSVDelimiter == "" {
		c.CSVDelimiter = ","
	}
	if c.LogDir == "" {
		c.LogDir = "/tmp"
	}
	if c.AzureKeySecretRegion == "" {
		c.AzureKeySecretRegion = c.AWSRegion
	}
}

// Validate checks settings shared by every command.
func (c *Config) Validate() error {
	if _, err := ParseDelimiter(c.CSVDelimiter); err != nil {
		return err
	}
	switch strings.ToLower(c.ChecksumAlgorithm) {
	case "md5", "xxhash":
	default:
		return fmt.Errorf("checksum-algorithm must be md5 or xxhash, got %q", c.ChecksumAlgorithm)
	}
	return nil
}

// ValidateSource checks the settings needed to list and fetch.
func (c *Config) ValidateSource() error {
	if c.S3Bucket == "" {
		return fmt.Errorf("s3-bucket is required")
	}
	if c.AWSRegion == "" {
		return fmt.Errorf("aws-region is required")
	}
	if (c.AWSAccessKeyID == "") != (c.AWSSecretAccessKey == "") {
		return fmt.Errorf("aws-access-key-id and aws-secret-access-key must be set together")
	}
	return nil
}

// ValidateDestination checks the settings needed to upload.
func (c *Config) ValidateDestination() error {
	if c.AzureAccountName == "" {
		return fmt.Errorf("azure-account-name is required")
	}
	if c.AzureContainer == "" {
		return fmt.Errorf("azure-container is required")
	}
	if c.AzureAccountKey == "" && c.AzureKeySecret == "" {
		return fmt.Errorf("azure-account-key or azure-key-secret is required")
	}
	if c.AzureAccountKey == "" && c.AzureKeySecretRegion == "" {
		return fmt.Errorf("azure-key-secret-region (or aws-region) is required when azure-key-secret is set")
	}
	return nil
}

// Delimiter returns the CSV delimiter as a rune. Call after Validate.
func (c *Config) Delimiter() rune {
	r, _ := ParseDelimiter(c.CSVDelimiter)
	return r
}

// ParseDelimiter accepts a single character, or "\t" / "tab" for a tab.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return ',', nil
	case `\t`, "tab", "\t":
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("csv-delimiter must be a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, fmt.Errorf("invalid csv-delimiter %q", s)
	}
	return r, nil
}

// fileConfig is the YAML layout. It has no secret fields; unknown keys,
// including any attempt to store a secret, are rejected.
type fileConfig struct {
	AWSRegion            string `yaml:"aws_region"`
	S3Bucket             string `yaml:"s3_bucket"`
	S3Endpoint           string `yaml:"s3_endpoint"`
	AzureAccountName     string `yaml:"azure_account_name"`
	AzureContainer       string `yaml:"azure_container"`
	AzureEndpoint        string `yaml:"azure_endpoint"`
	AzureKeySecret       string `yaml:"azure_key_secret"`
	AzureKeySecretRegion string `yaml:"azure_key_secret_region"`
	ConvertToParquet     *bool  `yaml:"convert_to_parquet"`
	VerifyChecksum       *bool  `yaml:"verify_checksum"`
	ChecksumAlgorithm    string `yaml:"checksum_algorithm"`
	ParquetCompression   string `yaml:"parquet_compression"`
	CSVDelimiter         string `yaml:"csv_delimiter"`
	ScratchDir           string `yaml:"scratch_dir"`
	LogDir               string `yaml:"log_dir"`
	LogDebug             *bool  `yaml:"log_debug"`
	LogStdout            *bool  `yaml:"log_stdout"`
}

// loadFromYAML loads configuration from a YAML file.
func loadFromYAML(cfg *Config, filepath string) error {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return err
	}

	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	setString(&cfg.AWSRegion, fc.AWSRegion)
	setString(&cfg.S3Bucket, fc.S3Bucket)
	setString(&cfg.S3Endpoint, fc.S3Endpoint)
	setString(&cfg.AzureAccountName, fc.AzureAccountName)
	setString(&cfg.AzureContainer, fc.AzureContainer)
	setString(&cfg.AzureEndpoint, fc.AzureEndpoint)
	setString(&cfg.AzureKeySecret, fc.AzureKeySecret)
	setString(&cfg.AzureKeySecretRegion, fc.AzureKeySecretRegion)
	setString(&cfg.ChecksumAlgorithm, fc.ChecksumAlgorithm)
	setString(&cfg.ParquetCompression, fc.ParquetCompression)
	setString(&cfg.CSVDelimiter, fc.CSVDelimiter)
	setString(&cfg.ScratchDir, fc.ScratchDir)
	setString(&cfg.LogDir, fc.LogDir)
	if fc.ConvertToParquet != nil {
		cfg.ConvertToParquet = *fc.ConvertToParquet
	}
	if fc.VerifyChecksum != nil {
		cfg.VerifyChecksum = *fc.VerifyChecksum
	}
	if fc.LogDebug != nil {
		cfg.LogDebug = *fc.LogDebug
	}
	if fc.LogStdout != nil {
		cfg.LogStdout = *fc.LogStdout
	}
	return nil
}

// loadFromEnv loads configuration from S3ADLS_* environment variables.
func loadFromEnv(cfg *Config) error {
	strs := map[string]*string{
		"AWS_REGION":              &cfg.AWSRegion,
		"S3_BUCKET":               &cfg.S3Bucket,
		"S3_ENDPOINT":             &cfg.S3Endpoint,
		"AWS_ACCESS_KEY_ID":       &cfg.AWSAccessKeyID,
		"AWS_SECRET_ACCESS_KEY":   &cfg.AWSSecretAccessKey,
		"AWS_SESSION_TOKEN":       &cfg.AWSSessionToken,
		"AZURE_ACCOUNT_NAME":      &cfg.AzureAccountName,
		"AZURE_CONTAINER":         &cfg.AzureContainer,
		"AZURE_ENDPOINT":          &cfg.AzureEndpoint,
		"AZURE_ACCOUNT_KEY":       &cfg.AzureAccountKey,
		"AZURE_KEY_SECRET":        &cfg.AzureKeySecret,
		"AZURE_KEY_SECRET_REGION": &cfg.AzureKeySecretRegion,
		"CHECKSUM_ALGORITHM":      &cfg.ChecksumAlgorithm,
		"PARQUET_COMPRESSION":     &cfg.ParquetCompression,
		"CSV_DELIMITER":           &cfg.CSVDelimiter,
		"SCRATCH_DIR":             &cfg.ScratchDir,
		"LOG_DIR":                 &cfg.LogDir,
	}
	for name, dst := range strs {
		setString(dst, os.Getenv(EnvPrefix+name))
	}

	bools := map[string]*bool{
		"CONVERT_TO_PARQUET": &cfg.ConvertToParquet,
		"VERIFY_CHECKSUM":    &cfg.VerifyChecksum,
		"LOG_DEBUG":          &cfg.LogDebug,
		"LOG_STDOUT":         &cfg.LogStdout,
	}
	for name, dst := range bools {
		val := os.Getenv(EnvPrefix + name)
		if val == "" {
			continue
		}
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
		}
		*dst = b
	}
	return nil
}

// loadFromFlags applies flags the user set explicitly.
func loadFromFlags(cfg *Config, fs *pflag.FlagSet) error {
	strs := map[string]*string{
		FlagAWSRegion:            &cfg.AWSRegion,
		FlagS3Bucket:             &cfg.S3Bucket,
		FlagS3Endpoint:           &cfg.S3Endpoint,
		FlagAWSAccessKeyID:       &cfg.AWSAccessKeyID,
		FlagAWSSecretAccessKey:   &cfg.AWSSecretAccessKey,
		FlagAWSSessionToken:      &cfg.AWSSessionToken,
		FlagAzureAccountName:     &cfg.AzureAccountName,
		FlagAzureContainer:       &cfg.AzureContainer,
		FlagAzureEndpoint:        &cfg.AzureEndpoint,
		FlagAzureAccountKey:      &cfg.AzureAccountKey,
		FlagAzureKeySecret:       &cfg.AzureKeySecret,
		FlagAzureKeySecretRegion: &cfg.AzureKeySecretRegion,
		FlagChecksumAlgorithm:    &cfg.ChecksumAlgorithm,
		FlagParquetCompression:   &cfg.ParquetCompression,
		FlagCSVDelimiter:         &cfg.CSVDelimiter,
		FlagScratchDir:           &cfg.ScratchDir,
		FlagLogDir:               &cfg.LogDir,
	}
	for name, dst := range strs {
		if fs.Lookup(name) == nil || !fs.Changed(name) {
			continue
		}
		val, err := fs.GetString(name)
		if err != nil {
			return err
		}
		*dst = val
	}

	bools := map[string]*bool{
		FlagConvert:   &cfg.ConvertToParquet,
		FlagVerify:    &cfg.VerifyChecksum,
		FlagDebug:     &cfg.LogDebug,
		FlagLogStdout: &cfg.LogStdout,
	}
	for name, dst := range bools {
		if fs.Lookup(name) == nil || !fs.Changed(name) {
			continue
		}
		val, err := fs.GetBool(name)
		if err != nil {
			return err
		}
		*dst = val
	}
	return nil
}

func setString(dst *string, val string) {
	if val != "" {
		*dst = val
	}
}
