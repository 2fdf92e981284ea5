package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/noblepay-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

const topicReadAttempts = 5

// topicReadBackoff is a variable so tests can shorten it
var topicReadBackoff = 2 * time.Second

// topicAdmin is the part of *kafka.Conn needed to provision topics
type topicAdmin interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	CreateTopics(topics ...kafka.TopicConfig) error
}

func topicConfig(topic string, cfg *config.KafkaConfig) kafka.TopicConfig {
	tc := kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}
	if tc.NumPartitions <= 0 {
		tc.NumPartitions = 1
	}
	if tc.ReplicationFactor <= 0 {
		tc.ReplicationFactor = 1
	}
	return tc
}

// createKafkaTopicIfNotExists creates the topic unless its partitions can be read,
// retrying partition reads a few times while the broker settles.
func createKafkaTopicIfNotExists(conn topicAdmin, tc kafka.TopicConfig, log *slog.Logger, attempts int) error {
	var partitions []kafka.Partition
	var err error

	log.Info("Checking if Kafka topic exists", "topic", tc.Topic)
	for i := 0; i < attempts; i++ {
		partitions, err = conn.ReadPartitions(tc.Topic)
		if err == nil {
			break
		}
		log.Warn("Failed to read partitions, retrying...", "topic", tc.Topic, "attempt", i+1, "error", err)
		if i < attempts-1 {
			time.Sleep(topicReadBackoff)
		}
	}

	if len(partitions) > 0 {
		log.Info("Kafka topic already exists", "topic", tc.Topic, "partitions", len(partitions))
		return nil
	}

	log.Info("Kafka topic does not exist or is not accessible, attempting to create it",
		"topic", tc.Topic,
		"partitions", tc.NumPartitions,
		"replication_factor", tc.ReplicationFactor,
		"last_read_error", err,
	)
	if creationErr := conn.CreateTopics(tc); creationErr != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", tc.Topic, creationErr)
	}
	log.Info("Successfully created Kafka topic", "topic", tc.Topic)
	return nil
}
