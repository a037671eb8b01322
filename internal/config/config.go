// Package config loads config.yaml from the workspace root and applies
// GUESTMAIL_* environment overrides on top of the defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"guestmail/internal/templates"
)

// FileName is the config file looked up in the workspace root.
const FileName = "config.yaml"

type Config struct {
	LogLevel          string               `yaml:"log_level"`
	LogFormat         string               `yaml:"log_format"`
	TemplatesFile     string               `yaml:"templates_file"`
	KnowledgeDir      string               `yaml:"knowledge_dir"`
	SignalsDir        string               `yaml:"signals_dir"`
	LedgerDB          string               `yaml:"ledger_db"`
	AuditDB           string               `yaml:"audit_db"`
	Signature         string               `yaml:"signature"`
	SignatureImageURL string               `yaml:"signature_image_url"`
	StaffMarkers      []string             `yaml:"staff_markers"`
	Ranker            templates.Thresholds `yaml:"ranker"`
	TemplateCacheTTL  time.Duration        `yaml:"template_cache_ttl"`
	Refine            RefineConfig         `yaml:"refine"`
	Signals           SignalsConfig        `yaml:"signals"`
	HTTP              HTTPConfig           `yaml:"http"`
}

type RefineConfig struct {
	// Executor is "claude" or "mock".
	Executor string        `yaml:"executor"`
	Command  string        `yaml:"command"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

type SignalsConfig struct {
	ArchiveThresholdBytes int64       `yaml:"archive_threshold_bytes"`
	RetentionDays         int         `yaml:"retention_days"`
	Kafka                 KafkaConfig `yaml:"kafka"`
}

// KafkaConfig enables mirroring of signal events when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file or env value is set.
// Empty paths resolve to the workspace conventions.
func Default() Config {
	return Config{
		LogLevel:         "info",
		LogFormat:        "json",
		Signature:        "Hostel Brikette Reception",
		Ranker:           templates.DefaultThresholds(),
		TemplateCacheTTL: templates.DefaultCacheTTL,
		Refine: RefineConfig{
			Executor: "claude",
			Command:  "claude",
			Timeout:  60 * time.Second,
		},
		Signals: SignalsConfig{
			ArchiveThresholdBytes: 1 << 20,
			RetentionDays:         30,
			Kafka: KafkaConfig{
				Topic: "guestmail-draft-signals",
			},
		},
		HTTP: HTTPConfig{Addr: ":8088"},
	}
}

// Load reads path over the defaults when it exists, then applies environment
// overrides and validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	var errs []error
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = splitList(v)
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	float := func(key string, dst *float64) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}

	str("GUESTMAIL_LOG_LEVEL", &cfg.LogLevel)
	str("GUESTMAIL_LOG_FORMAT", &cfg.LogFormat)
	str("GUESTMAIL_TEMPLATES_FILE", &cfg.TemplatesFile)
	str("GUESTMAIL_KNOWLEDGE_DIR", &cfg.KnowledgeDir)
	str("GUESTMAIL_SIGNALS_DIR", &cfg.SignalsDir)
	str("GUESTMAIL_LEDGER_DB", &cfg.LedgerDB)
	str("GUESTMAIL_AUDIT_DB", &cfg.AuditDB)
	str("GUESTMAIL_SIGNATURE", &cfg.Signature)
	str("GUESTMAIL_SIGNATURE_IMAGE_URL", &cfg.SignatureImageURL)
	list("GUESTMAIL_STAFF_MARKERS", &cfg.StaffMarkers)
	float("GUESTMAIL_RANKER_AUTO_THRESHOLD", &cfg.Ranker.Auto)
	float("GUESTMAIL_RANKER_FLOOR", &cfg.Ranker.Floor)
	float("GUESTMAIL_RANKER_MARGIN", &cfg.Ranker.Margin)
	dur("GUESTMAIL_TEMPLATE_CACHE_TTL", &cfg.TemplateCacheTTL)
	str("GUESTMAIL_REFINE_EXECUTOR", &cfg.Refine.Executor)
	str("GUESTMAIL_REFINE_COMMAND", &cfg.Refine.Command)
	str("GUESTMAIL_REFINE_MODEL", &cfg.Refine.Model)
	dur("GUESTMAIL_REFINE_TIMEOUT", &cfg.Refine.Timeout)
	list("GUESTMAIL_KAFKA_BROKERS", &cfg.Signals.Kafka.Brokers)
	str("GUESTMAIL_KAFKA_TOPIC", &cfg.Signals.Kafka.Topic)
	str("GUESTMAIL_HTTP_ADDR", &cfg.HTTP.Addr)

	if v := strings.TrimSpace(getenv("GUESTMAIL_SIGNALS_RETENTION_DAYS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("GUESTMAIL_SIGNALS_RETENTION_DAYS: %w", err))
		} else {
			cfg.Signals.RetentionDays = n
		}
	}
	if v := strings.TrimSpace(getenv("GUESTMAIL_SIGNALS_ARCHIVE_THRESHOLD_BYTES")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("GUESTMAIL_SIGNALS_ARCHIVE_THRESHOLD_BYTES: %w", err))
		} else {
			cfg.Signals.ArchiveThresholdBytes = n
		}
	}
	return errors.Join(errs...)
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log_format must be json or text, got %q", c.LogFormat))
	}
	if c.Ranker.Floor < 0 || c.Ranker.Floor > 1 {
		errs = append(errs, fmt.Errorf("ranker.floor must be within [0,1], got %v", c.Ranker.Floor))
	}
	if c.Ranker.Auto < c.Ranker.Floor || c.Ranker.Auto > 1 {
		errs = append(errs, fmt.Errorf("ranker.auto_threshold must be within [floor,1], got %v", c.Ranker.Auto))
	}
	if c.Ranker.Margin < 0 {
		errs = append(errs, fmt.Errorf("ranker.margin must not be negative, got %v", c.Ranker.Margin))
	}
	if c.TemplateCacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("template_cache_ttl must be positive, got %s", c.TemplateCacheTTL))
	}
	switch c.Refine.Executor {
	case "claude", "mock":
	default:
		errs = append(errs, fmt.Errorf("refine.executor must be claude or mock, got %q", c.Refine.Executor))
	}
	if c.Refine.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("refine.timeout must be positive, got %s", c.Refine.Timeout))
	}
	if c.Signals.ArchiveThresholdBytes <= 0 {
		errs = append(errs, fmt.Errorf("signals.archive_threshold_bytes must be positive, got %d", c.Signals.ArchiveThresholdBytes))
	}
	if c.Signals.RetentionDays <= 0 {
		errs = append(errs, fmt.Errorf("signals.retention_days must be positive, got %d", c.Signals.RetentionDays))
	}
	if len(c.Signals.Kafka.Brokers) > 0 && strings.TrimSpace(c.Signals.Kafka.Topic) == "" {
		errs = append(errs, errors.New("signals.kafka.topic is required when brokers are set"))
	}
	if url := strings.TrimSpace(c.SignatureImageURL); url != "" && !strings.HasPrefix(url, "https://") {
		errs = append(errs, fmt.Errorf("signature_image_url must be https, got %q", url))
	}
	return errors.Join(errs...)
}

// Retention returns the signal retention window.
func (c Config) Retention() time.Duration {
	return time.Duration(c.Signals.RetentionDays) * 24 * time.Hour
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
