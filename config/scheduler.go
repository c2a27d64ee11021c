package config

import "time"

type SchedulerConfig struct {
	// TickInterval is the periodic fallback tick so workers are never starved
	// in an idle system. The event bus remains the primary trigger.
	TickInterval time.Duration `env:"MEMRING_TICK_INTERVAL" yaml:"tickInterval"`

	// WorkerConcurrency bounds concurrent runs per worker type.
	WorkerConcurrency int `env:"MEMRING_WORKER_CONCURRENCY" yaml:"workerConcurrency"`

	// WorkerTimeout bounds a single worker run.
	WorkerTimeout time.Duration `env:"MEMRING_WORKER_TIMEOUT" yaml:"workerTimeout"`
}

func NewSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		TickInterval:      10 * time.Minute,
		WorkerConcurrency: 2,
		WorkerTimeout:     time.Minute,
	}
}
