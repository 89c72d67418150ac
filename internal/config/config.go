package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type MailCfg struct {
	Recipient string `yaml:"recipient" json:"recipient"`
	Command   string `yaml:"command" json:"command"` // Local mail relay invoked as a subprocess (e.g., msmtp)
}

type JournalCfg struct {
	Tag      string `yaml:"tag" json:"tag"`           // Tag passed to logger(1) for the system journal mirror
	Disabled bool   `yaml:"disabled" json:"disabled"` // Disable mirroring captured tool output to the journal
}

type PrometheusCfg struct {
	Port int `yaml:"port" json:"port"` // 0 disables the metrics endpoint
}

type LoggingCfg struct {
	RotationDays int `yaml:"rotation_days" json:"rotation_days"` // Days to keep logs before rotation
}

type Config struct {
	RetentionDays int    `yaml:"retention_days" json:"retention_days"` // Artifact age cutoff for the sweep
	BackupCommand string `yaml:"backup_command" json:"backup_command"` // External imaging tool
	BackupFlag    string `yaml:"backup_flag" json:"backup_flag"`       // Flag carrying the artifact path
	NoSudo        bool   `yaml:"no_sudo" json:"no_sudo"`               // Run the imaging tool without privilege escalation
	SizeHint      bool   `yaml:"size_hint" json:"size_hint"`           // Append the legacy ,,1024 pre-size directive for new artifacts
	DatabasePath  string `yaml:"database_path" json:"database_path"`   // SQLite run/sweep history, empty disables

	Mail       MailCfg       `yaml:"mail" json:"mail"`
	Journal    JournalCfg    `yaml:"journal" json:"journal"`
	Prometheus PrometheusCfg `yaml:"prometheus" json:"prometheus"`
	Logging    LoggingCfg    `yaml:"logging" json:"logging"`
}

var (
	errNegativeRetention = errors.New("retention_days cannot be negative")
	errEmptyCommand      = errors.New("backup_command cannot be empty")
)

// Default returns the compiled-in configuration. A config file is optional;
// a bare invocation runs entirely on these values.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) validateAndDefault() error {
	if c.RetentionDays < 0 {
		return errNegativeRetention
	}

	c.applyDefaults()

	if c.BackupCommand == "" {
		return errEmptyCommand
	}
	if c.DatabasePath != "" && !filepath.IsAbs(c.DatabasePath) {
		return fmt.Errorf("database_path must be absolute: %s", c.DatabasePath)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.RetentionDays == 0 {
		c.RetentionDays = 365
	}
	if c.BackupCommand == "" {
		c.BackupCommand = "image-backup"
	}
	if c.BackupFlag == "" {
		c.BackupFlag = "-i"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "/var/lib/backup-warden/history.db"
	}
	if c.Mail.Recipient == "" {
		c.Mail.Recipient = "hst@gamebox.at"
	}
	if c.Mail.Command == "" {
		c.Mail.Command = "msmtp"
	}
	if c.Journal.Tag == "" {
		c.Journal.Tag = "image-backup"
	}
	// Prometheus.Port stays 0 by default: this is a one-shot process, the
	// endpoint only makes sense when an operator scrapes during long runs.
	if c.Logging.RotationDays <= 0 {
		c.Logging.RotationDays = 30
	}
}
