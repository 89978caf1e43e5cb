package backend

import (
	"context"
	"fmt"

	"skillchisel/internal/amqp"
	"skillchisel/internal/livequery"
	applog "skillchisel/internal/log"
	"skillchisel/internal/services"
	"skillchisel/internal/storage"
	"skillchisel/internal/storage/memory"
)

type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend opens the configured store. An unreachable broker is
// logged and skipped, leaving change delivery local to this process.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.openStore(config)
	if err != nil {
		return nil, err
	}

	hub := livequery.NewHub(f.logger.Slog())

	var broker *amqp.Client
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, f.logger.Slog())
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without change broadcast", "error", err)
		} else {
			broker = client
			hub.SetBroadcaster(broker)
			f.logger.Info("Initialized AMQP client", "exchange", config.AMQPExchange)
		}
	}

	result := &BackendResult{
		Store:  store,
		Hub:    hub,
		Skills: services.NewSkillService(store, hub, f.logger),
		Broker: broker,
	}
	result.Cleanup = func() error {
		if broker != nil {
			broker.Close()
		}
		return store.Close()
	}
	return result, nil
}

func (f *DefaultFactory) openStore(config Config) (storage.Store, error) {
	if config.Type == MemoryBackend {
		f.logger.Info("Using in-memory store")
		return memory.New(), nil
	}
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, storage.WithLogger(f.logger.Slog()))
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	f.logger.Info("Using SQLite store", "db_path", config.SQLiteDBPath)
	return repo, nil
}
