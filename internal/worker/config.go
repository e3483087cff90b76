package worker

import "time"

const (
	defaultBatchSize     = 1
	defaultFlushInterval = time.Second
)

type Config struct {
	NumWorkers       int           `mapstructure:"num_workers"`
	BatchSize        int           `mapstructure:"batch_size"`
	MaxBatchCapacity int           `mapstructure:"max_batch_capacity"`
	FlushInterval    time.Duration `mapstructure:"flush_interval"`
}

func (c Config) batchSize() int {
	size := c.BatchSize
	if size <= 0 {
		size = defaultBatchSize
	}
	if c.MaxBatchCapacity > 0 && size > c.MaxBatchCapacity {
		size = c.MaxBatchCapacity
	}
	return size
}

func (c Config) flushInterval() time.Duration {
	if c.FlushInterval <= 0 {
		return defaultFlushInterval
	}
	return c.FlushInterval
}
