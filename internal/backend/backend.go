// Package backend assembles the data layer the server runs on: a skill
// store, the live-query hub fed by it and the optional AMQP broadcast that
// carries changes between instances.
package backend

import (
	"context"
	"errors"
	"fmt"

	"skillchisel/internal/amqp"
	"skillchisel/internal/config"
	"skillchisel/internal/livequery"
	"skillchisel/internal/services"
	"skillchisel/internal/storage"
)

var ErrUnknownBackend = errors.New("unknown data backend")

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string { return string(bt) }

func (bt BackendType) IsValid() bool {
	return bt == SQLiteBackend || bt == MemoryBackend
}

// Config selects the store and, when AMQPURL is set, the exchange that
// change notifications are published to.
type Config struct {
	Type         BackendType
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
}

// FromAppConfig picks the backend fields out of the application config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("backend: nil app config")
	}
	cfg := Config{
		Type:         BackendType(appConfig.DataBackend),
		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
	}
	if !cfg.Type.IsValid() {
		return Config{}, fmt.Errorf("%w %q", ErrUnknownBackend, appConfig.DataBackend)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case !c.Type.IsValid():
		return fmt.Errorf("%w %q", ErrUnknownBackend, c.Type)
	case c.Type == SQLiteBackend && c.SQLiteDBPath == "":
		return errors.New("backend: sqlite needs a database path")
	case c.AMQPURL != "" && c.AMQPExchange == "":
		return errors.New("backend: AMQP URL set without an exchange")
	}
	return nil
}

// BackendResult is the data layer handed to the server. Broker is nil when
// AMQP is not configured.
type BackendResult struct {
	Store   storage.Store
	Hub     *livequery.Hub
	Skills  *services.SkillService
	Broker  *amqp.Client
	Cleanup func() error
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
