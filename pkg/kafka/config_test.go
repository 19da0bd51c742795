package kafka

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducerWriterDefaults(t *testing.T) {
	w, err := ProducerConfig{Brokers: []string{"localhost:9092"}}.withDefaults().writer()
	require.NoError(t, err)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	assert.Equal(t, kafka.Gzip, w.Compression)
	assert.Equal(t, 3, w.MaxAttempts)
	assert.Equal(t, time.Second, w.BatchTimeout)
	assert.IsType(t, &kafka.LeastBytes{}, w.Balancer)
}

func TestProducerKeyedBalancing(t *testing.T) {
	w, err := ProducerConfig{Brokers: []string{"b:9092"}, Compression: "snappy", KeyedBalancing: true}.withDefaults().writer()
	require.NoError(t, err)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
	assert.Equal(t, kafka.Snappy, w.Compression)
}

func TestProducerConfigErrors(t *testing.T) {
	_, err := NewProducer(ProducerConfig{})
	assert.ErrorIs(t, err, errNoBrokers)

	_, err = NewProducer(ProducerConfig{Brokers: []string{"b:9092"}, Compression: "brotli"})
	assert.ErrorContains(t, err, "brotli")
}

func TestConsumerDefaults(t *testing.T) {
	c := ConsumerConfig{BackoffMin: 5 * time.Second, BackoffMax: time.Second}.withDefaults()
	assert.Equal(t, "marketlens", c.GroupID)
	assert.Equal(t, 1, c.Workers)
	assert.Equal(t, 2*time.Second, c.BackoffMax)
	assert.NotNil(t, c.Logger)

	_, err := NewConsumer(ConsumerConfig{})
	assert.ErrorIs(t, err, errNoBrokers)
}
