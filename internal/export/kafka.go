package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/pcaptcha/botsense/internal/signal"
)

// KafkaConfig holds configuration for the Kafka producer.
type KafkaConfig struct {
	Brokers     []string
	Topic       string
	Acks        string
	Compression string

	// SASL config
	SASLMechanism string
	SASLUser      string
	SASLPassword  string

	// TLS config
	TLSCAPath     string
	TLSSkipVerify bool
}

// KafkaExporter publishes enriched records keyed by record_id, so a
// downstream consumer that replays the topic can deduplicate on the key.
type KafkaExporter struct {
	config   KafkaConfig
	producer *kafka.Producer
}

// NewKafkaExporterFromEnv creates a KafkaExporter from environment variables.
func NewKafkaExporterFromEnv() *KafkaExporter {
	brokersStr := os.Getenv("KAFKA_BROKERS")
	if brokersStr == "" {
		brokersStr = "localhost:9092"
	}
	brokers := strings.Split(brokersStr, ",")
	for i, broker := range brokers {
		brokers[i] = strings.TrimSpace(broker)
	}

	config := KafkaConfig{
		Brokers:       brokers,
		Topic:         getEnvOr("KAFKA_TOPIC", "botsense.records"),
		Acks:          getEnvOr("KAFKA_ACKS", "all"),
		Compression:   getEnvOr("KAFKA_COMPRESSION", ""),
		SASLMechanism: os.Getenv("KAFKA_SASL_MECHANISM"),
		SASLUser:      os.Getenv("KAFKA_SASL_USER"),
		SASLPassword:  os.Getenv("KAFKA_SASL_PASSWORD"),
		TLSCAPath:     os.Getenv("KAFKA_TLS_CA"),
		TLSSkipVerify: getBoolEnv("KAFKA_TLS_SKIP_VERIFY", false),
	}

	return &KafkaExporter{config: config}
}

// NewKafkaExporter creates a KafkaExporter with explicit configuration.
func NewKafkaExporter(brokers []string, topic string) *KafkaExporter {
	return &KafkaExporter{
		config: KafkaConfig{
			Brokers: brokers,
			Topic:   topic,
			Acks:    "all",
		},
	}
}

func (e *KafkaExporter) Name() string { return "kafka" }

func (e *KafkaExporter) Start(ctx context.Context) error {
	configMap := kafka.ConfigMap{
		"bootstrap.servers": strings.Join(e.config.Brokers, ","),
		"acks":              e.config.Acks,
		"retries":           10,
		"retry.backoff.ms":  100,
		"batch.size":        16384,
		"linger.ms":         10,
	}

	if e.config.Compression != "" {
		configMap["compression.type"] = e.config.Compression
	}

	if e.config.SASLMechanism != "" {
		configMap["security.protocol"] = "SASL_SSL"
		configMap["sasl.mechanism"] = e.config.SASLMechanism
		if e.config.SASLUser != "" {
			configMap["sasl.username"] = e.config.SASLUser
		}
		if e.config.SASLPassword != "" {
			configMap["sasl.password"] = e.config.SASLPassword
		}
	}

	if e.config.TLSCAPath != "" {
		if e.config.SASLMechanism == "" {
			configMap["security.protocol"] = "SSL"
		}
		configMap["ssl.ca.location"] = e.config.TLSCAPath
	}

	if e.config.TLSSkipVerify {
		configMap["ssl.endpoint.identification.algorithm"] = "none"
	}

	producer, err := kafka.NewProducer(&configMap)
	if err != nil {
		return fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	e.producer = producer

	// Delivery reports are drained in the background; publishing stays
	// non-blocking on the ingestion path.
	go e.handleDeliveryReports(ctx)

	return nil
}

func (e *KafkaExporter) Publish(rec signal.EnrichedRecord) error {
	if e.producer == nil {
		return fmt.Errorf("kafka producer not initialized")
	}

	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to serialize record: %w", err)
	}

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &e.config.Topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(rec.RecordID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "schema", Value: []byte("v1")},
		},
	}

	if err := e.producer.Produce(msg, nil); err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}

	return nil
}

func (e *KafkaExporter) Close() error {
	if e.producer == nil {
		return nil
	}

	// Flush any remaining messages (wait up to 10 seconds)
	remaining := e.producer.Flush(10 * 1000)
	if remaining > 0 {
		return fmt.Errorf("failed to flush %d remaining messages", remaining)
	}

	e.producer.Close()
	return nil
}

func (e *KafkaExporter) handleDeliveryReports(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-e.producer.Events():
			switch msg := ev.(type) {
			case *kafka.Message:
				if msg.TopicPartition.Error != nil {
					fmt.Fprintf(os.Stderr, "kafka delivery failed: %v\n", msg.TopicPartition.Error)
				}
			case kafka.Error:
				fmt.Fprintf(os.Stderr, "kafka error: %v\n", msg)
			}
		}
	}
}

// Helper functions
func getEnvOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch value {
	case "1", "t", "true", "y", "yes":
		return true
	case "0", "f", "false", "n", "no":
		return false
	}
	return defaultValue
}
