package kafka

import (
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	applogger "MarketLens/pkg/logger"
)

var errNoBrokers = errors.New("brokers are required")

// ProducerConfig configures Producer. Zero fields take the defaults below.
type ProducerConfig struct {
	Brokers      []string
	RequiredAcks int    // -1 waits for all replicas
	Compression  string // gzip, snappy, lz4 or zstd
	MaxAttempts  int
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	BatchSize    int
	BatchBytes   int
	Linger       time.Duration
	Async        bool
	// KeyedBalancing routes equal keys to one partition so refresh events
	// of one instance stay ordered.
	KeyedBalancing bool
}

func (c ProducerConfig) withDefaults() ProducerConfig {
	if c.RequiredAcks == 0 {
		c.RequiredAcks = -1
	}
	if c.Compression == "" {
		c.Compression = "gzip"
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.BatchBytes <= 0 {
		c.BatchBytes = 1 << 20
	}
	if c.Linger <= 0 {
		c.Linger = time.Second
	}
	return c
}

func (c ProducerConfig) writer() (*kafka.Writer, error) {
	if len(c.Brokers) == 0 {
		return nil, errNoBrokers
	}
	comp, err := parseCompression(c.Compression)
	if err != nil {
		return nil, err
	}
	var bal kafka.Balancer = &kafka.LeastBytes{}
	if c.KeyedBalancing {
		bal = &kafka.Hash{}
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(c.Brokers...),
		Balancer:               bal,
		RequiredAcks:           kafka.RequiredAcks(c.RequiredAcks),
		Compression:            comp,
		MaxAttempts:            c.MaxAttempts,
		WriteTimeout:           c.WriteTimeout,
		ReadTimeout:            c.ReadTimeout,
		BatchSize:              c.BatchSize,
		BatchBytes:             int64(c.BatchBytes),
		BatchTimeout:           c.Linger,
		Async:                  c.Async,
		AllowAutoTopicCreation: true,
	}, nil
}

func parseCompression(s string) (kafka.Compression, error) {
	switch s {
	case "gzip":
		return kafka.Gzip, nil
	case "snappy":
		return kafka.Snappy, nil
	case "lz4":
		return kafka.Lz4, nil
	case "zstd":
		return kafka.Zstd, nil
	}
	return 0, fmt.Errorf("unknown compression %q", s)
}

// ConsumerConfig configures Consumer. Zero fields take the defaults below.
type ConsumerConfig struct {
	Brokers []string
	GroupID string
	// StartLatest skips history for a group with no committed offset.
	// Refresh events only matter while they are fresh.
	StartLatest bool
	Workers     int
	BufferSize  int
	RetryMax    int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
	DLQTopic    string
	MinBytes    int
	MaxBytes    int
	Logger      *applogger.Logger
}

func (c ConsumerConfig) withDefaults() ConsumerConfig {
	if c.GroupID == "" {
		c.GroupID = "marketlens"
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 10
	}
	if c.RetryMax < 0 {
		c.RetryMax = 0
	}
	if c.BackoffMin <= 0 {
		c.BackoffMin = 50 * time.Millisecond
	}
	if c.BackoffMax < c.BackoffMin {
		c.BackoffMax = 2 * time.Second
	}
	if c.MinBytes <= 0 {
		c.MinBytes = 10e3
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10e6
	}
	if c.Logger == nil {
		c.Logger = applogger.Nop()
	}
	return c
}
