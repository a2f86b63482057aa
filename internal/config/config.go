package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultRegion         = "eu-west-1"
	DefaultMaxRetries     = 3
	DefaultRetryPauseMS   = 100
	DefaultRequestTimeout = 30
	DefaultIPCAddress     = "127.0.0.1:41821"
)

type Config struct {
	MaxRetries   int       `toml:"max_retries"`
	RetryPauseMS int       `toml:"retry_pause_ms"`
	S3           S3Config  `toml:"s3"`
	IPC          IPCConfig `toml:"ipc"`
	Log          LogConfig `toml:"log"`
}

type S3Config struct {
	Endpoint              string `toml:"endpoint"`
	Region                string `toml:"region"`
	Bucket                string `toml:"bucket"`
	AccessKeyID           string `toml:"access_key_id"`
	SecretAccessKey       string `toml:"secret_access_key"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

type IPCConfig struct {
	Addr string `toml:"addr"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		MaxRetries:   DefaultMaxRetries,
		RetryPauseMS: DefaultRetryPauseMS,
		S3: S3Config{
			Region:                DefaultRegion,
			RequestTimeoutSeconds: DefaultRequestTimeout,
		},
		IPC: IPCConfig{
			Addr: DefaultIPCAddress,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyDefaults fills in values left blank by a partial config file.
// max_retries and retry_pause_ms are not defaulted here: an explicit 0 must
// reach Validate.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.S3.Region) == "" {
		c.S3.Region = DefaultRegion
	}
	if strings.TrimSpace(c.IPC.Addr) == "" {
		c.IPC.Addr = DefaultIPCAddress
	}
	if strings.TrimSpace(c.Log.Level) == "" {
		c.Log.Level = "info"
	}
	if strings.TrimSpace(c.Log.Format) == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) Normalize() {
	c.S3.Endpoint = strings.TrimSpace(c.S3.Endpoint)
	c.S3.Region = strings.TrimSpace(c.S3.Region)
	c.S3.Bucket = strings.TrimSpace(c.S3.Bucket)
	c.S3.AccessKeyID = strings.TrimSpace(c.S3.AccessKeyID)
	c.S3.SecretAccessKey = strings.TrimSpace(c.S3.SecretAccessKey)
	c.IPC.Addr = strings.TrimSpace(c.IPC.Addr)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
}

func (c *Config) Validate() error {
	if c.MaxRetries < 1 {
		return errors.New("max_retries must be >= 1")
	}
	if c.RetryPauseMS < 0 {
		return errors.New("retry_pause_ms must be >= 0")
	}
	if err := c.S3.validate(); err != nil {
		return err
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.New("log.level must be debug, info, warn, or error")
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return errors.New("log.format must be text or json")
	}
	return nil
}

func (s S3Config) validate() error {
	if s.Bucket == "" {
		if s.Endpoint != "" {
			return errors.New("s3.bucket is required when s3.endpoint is set")
		}
	} else {
		if strings.Contains(s.Bucket, "/") {
			return errors.New("s3.bucket must not contain '/'")
		}
		if s.Region == "" {
			return errors.New("s3.region is required when s3.bucket is set")
		}
	}
	if s.Endpoint != "" {
		u, err := url.Parse(s.Endpoint)
		if err != nil || u.Host == "" {
			return fmt.Errorf("s3.endpoint must be a valid http(s) URL: %q", s.Endpoint)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.New("s3.endpoint must use http or https")
		}
	}
	if (s.AccessKeyID == "") != (s.SecretAccessKey == "") {
		return errors.New("s3.access_key_id and s3.secret_access_key must be set together")
	}
	if s.RequestTimeoutSeconds < 0 {
		return errors.New("s3.request_timeout_seconds must be >= 0")
	}
	return nil
}

// RetryPause is the fixed wait applied after a failed read or write.
func (c *Config) RetryPause() time.Duration {
	return time.Duration(c.RetryPauseMS) * time.Millisecond
}

// RequestTimeout is zero when per-request timeouts are disabled.
func (s S3Config) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// UsesS3 reports whether nodes go to a bucket rather than the local directory.
func (s S3Config) UsesS3() bool {
	return s.Bucket != ""
}
