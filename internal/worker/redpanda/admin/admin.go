package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

type Config struct {
	Brokers           []string `mapstructure:"brokers"`
	Partitions        int32    `mapstructure:"partitions"`
	ReplicationFactor int16    `mapstructure:"replication_factor"`
}

// EnsureTopics creates the given topics, treating already existing ones as
// success.
func EnsureTopics(ctx context.Context, cfg Config, topics ...string) error {
	client, err := kgo.NewClient(kgo.SeedBrokers(cfg.Brokers...))
	if err != nil {
		return fmt.Errorf("kgo new client: %w", err)
	}
	adm := kadm.NewClient(client)
	defer adm.Close()

	partitions, replication := cfg.Partitions, cfg.ReplicationFactor
	if partitions <= 0 {
		partitions = 1
	}
	if replication <= 0 {
		replication = 1
	}

	resp, err := adm.CreateTopics(ctx, partitions, replication, map[string]*string{}, topics...)
	if err != nil {
		return fmt.Errorf("create topics: %w", err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}
