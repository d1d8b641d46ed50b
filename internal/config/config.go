package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// SASL mechanisms understood by the consumer.
const (
	SASLNone        = "none"
	SASLPlain       = "plain"
	SASLScramSHA256 = "scram-sha-256"
	SASLScramSHA512 = "scram-sha-512"
)

// Config is the full downloader configuration, loaded from YAML.
type Config struct {
	Kafka    Kafka  `yaml:"kafka"`
	Output   Output `yaml:"output"`
	Database string `yaml:"database"` // sqlite archive path; empty disables
	Serve    string `yaml:"serve"`    // websocket listen address; empty disables
	Log      Log    `yaml:"log"`
}

// Kafka holds broker connection settings. ClientID/ClientSecret are the
// SASL credentials issued by the broker operator (for GCN, the client
// credentials from gcn.nasa.gov).
type Kafka struct {
	Broker          string   `yaml:"broker"`
	ClientID        string   `yaml:"client_id"`
	ClientSecret    string   `yaml:"client_secret"`
	GroupID         string   `yaml:"group_id"`
	Topics          []string `yaml:"topics"`
	SASLMechanism   string   `yaml:"sasl_mechanism"`
	TLS             bool     `yaml:"tls"`
	StartAtEarliest bool     `yaml:"start_at_earliest"`
}

// Output controls what gets written to disk for each notice.
type Output struct {
	Directory      string    `yaml:"directory"`
	Organise       bool      `yaml:"organise"`
	WriteRawAlert  bool      `yaml:"write_raw_alert"`
	WriteSkymap    bool      `yaml:"write_skymap"`
	Contours       []float64 `yaml:"contours"` // percent, 0 < c <= 100
	SkipTestEvents bool      `yaml:"skip_test_events"`
}

// Log controls logging output. File, when set, receives JSON log lines in
// addition to the console stream on stderr.
type Log struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

// Default returns the configuration used when keys are absent from the file.
func Default() *Config {
	return &Config{
		Kafka: Kafka{
			Broker:        "kafka.gcn.nasa.gov:9092",
			Topics:        []string{"igwn.gwalert"},
			SASLMechanism: SASLPlain,
			TLS:           true,
		},
		Output: Output{
			Directory:     "/tmp/gwalerts",
			WriteRawAlert: true,
			WriteSkymap:   true,
			Contours:      []float64{90},
		},
		Log: Log{Level: "info"},
	}
}

// Load reads and validates a YAML config file. GCN_CLIENT_ID and
// GCN_CLIENT_SECRET environment variables override the file credentials.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if v := os.Getenv("GCN_CLIENT_ID"); v != "" {
		cfg.Kafka.ClientID = v
	}
	if v := os.Getenv("GCN_CLIENT_SECRET"); v != "" {
		cfg.Kafka.ClientSecret = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the consumer cannot run with.
func (c *Config) Validate() error {
	if c.Kafka.Broker == "" {
		return errors.New("config: kafka.broker is required")
	}
	if len(c.Kafka.Topics) == 0 {
		return errors.New("config: at least one kafka topic is required")
	}
	switch c.Kafka.SASLMechanism {
	case SASLNone, SASLPlain, SASLScramSHA256, SASLScramSHA512:
	case "":
		c.Kafka.SASLMechanism = SASLNone
	default:
		return fmt.Errorf("config: unknown sasl_mechanism %q", c.Kafka.SASLMechanism)
	}
	if c.Kafka.SASLMechanism != SASLNone && (c.Kafka.ClientID == "" || c.Kafka.ClientSecret == "") {
		return errors.New("config: client_id and client_secret are required unless sasl_mechanism is none")
	}
	if c.Output.Directory == "" {
		return errors.New("config: output.directory is required")
	}
	for _, lvl := range c.Output.Contours {
		if lvl <= 0 || lvl > 100 {
			return fmt.Errorf("config: contour %g outside (0,100]", lvl)
		}
	}
	return nil
}

// ParseContours parses a comma-separated contour list like "90,50,10" into
// percent levels, validating each the same way Load does.
func ParseContours(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lvl, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("config: contour %q is not a number", part)
		}
		if lvl <= 0 || lvl > 100 {
			return nil, fmt.Errorf("config: contour %g outside (0,100]", lvl)
		}
		out = append(out, lvl)
	}
	if len(out) == 0 {
		return nil, errors.New("config: no contours given")
	}
	return out, nil
}
