// Package gcn builds authenticated Kafka readers for GCN-style alert brokers.
package gcn

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"gwalerts/internal/config"
)

// NewReader returns a configured kafka.Reader for one alert topic.
// When no group id is configured a fresh "gwalerts-<uuid>" id is used,
// so each run starts from the live end of the stream.
func NewReader(cfg config.Kafka, topic string) (*kafka.Reader, error) {
	dialer, err := newDialer(cfg)
	if err != nil {
		return nil, err
	}

	group := cfg.GroupID
	if group == "" {
		group = "gwalerts-" + uuid.NewString()
	}

	start := kafka.LastOffset
	if cfg.StartAtEarliest {
		start = kafka.FirstOffset
	}

	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:         []string{cfg.Broker},
		Topic:           topic,
		GroupID:         group,
		Dialer:          dialer,
		MinBytes:        1,
		MaxBytes:        10e6,
		MaxWait:         1 * time.Second,
		StartOffset:     start,
		ReadLagInterval: -1,
	}), nil
}

func newDialer(cfg config.Kafka) (*kafka.Dialer, error) {
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	if cfg.TLS {
		dialer.TLS = &tls.Config{}
	}

	mech, err := saslMechanism(cfg)
	if err != nil {
		return nil, err
	}
	dialer.SASLMechanism = mech
	return dialer, nil
}

func saslMechanism(cfg config.Kafka) (sasl.Mechanism, error) {
	switch cfg.SASLMechanism {
	case "", config.SASLNone:
		return nil, nil
	case config.SASLPlain:
		return plain.Mechanism{Username: cfg.ClientID, Password: cfg.ClientSecret}, nil
	case config.SASLScramSHA256:
		return scram.Mechanism(scram.SHA256, cfg.ClientID, cfg.ClientSecret)
	case config.SASLScramSHA512:
		return scram.Mechanism(scram.SHA512, cfg.ClientID, cfg.ClientSecret)
	default:
		return nil, fmt.Errorf("gcn: unknown sasl mechanism %q", cfg.SASLMechanism)
	}
}
