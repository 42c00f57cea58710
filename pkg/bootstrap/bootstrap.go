// Package bootstrap turns configuration into the services the binaries share.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/synaptica-ai/oncorisk/pkg/audit"
	"github.com/synaptica-ai/oncorisk/pkg/common/config"
	"github.com/synaptica-ai/oncorisk/pkg/common/database"
	"github.com/synaptica-ai/oncorisk/pkg/common/kafka"
	"github.com/synaptica-ai/oncorisk/pkg/common/logger"
	"github.com/synaptica-ai/oncorisk/pkg/form"
	"github.com/synaptica-ai/oncorisk/pkg/gateway/httpclient"
	"github.com/synaptica-ai/oncorisk/pkg/history"
	"github.com/synaptica-ai/oncorisk/pkg/riskclient"
	"github.com/synaptica-ai/oncorisk/pkg/session"
	"github.com/synaptica-ai/oncorisk/pkg/storage"
)

// Services holds everything a binary needs to run sessions.
type Services struct {
	Config    *config.Config
	Catalog   *form.Catalog
	Client    *riskclient.Client
	Store     storage.SessionStore
	History   *history.Repository
	Observers []session.Observer

	closers []func() error
}

// Build connects the optional backends named by cfg. Redis and Postgres
// failures are fatal when configured; Kafka connects lazily on first publish.
func Build(ctx context.Context, cfg *config.Config, source string) (*Services, error) {
	catalog, err := form.LoadCatalog(cfg.FieldCatalogPath)
	if err != nil {
		return nil, err
	}

	s := &Services{
		Config:  cfg,
		Catalog: catalog,
		Client:  NewRiskClient(ctx, cfg),
		Store:   storage.NewMemorySessionStore(cfg.SessionTTL),
	}

	if cfg.RedisEnabled() {
		client, err := database.NewRedis(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s.Store = storage.NewRedisSessionStore(client, cfg.SessionTTL)
		s.closers = append(s.closers, client.Close)
	}

	if cfg.KafkaEnabled() {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaEventsTopic)
		s.closers = append(s.closers, producer.Close)
		s.addObserver("kafka", audit.NewPublisher(producer, source))
		logger.Log.WithField("topic", cfg.KafkaEventsTopic).Info("Publishing assessment events")
	}

	if cfg.HistoryEnabled {
		db, err := database.NewPostgres(cfg)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, func() error { return database.ClosePostgres(db) })

		repo := history.NewRepository(db)
		if err := repo.AutoMigrate(); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to migrate assessment history: %w", err)
		}
		s.History = repo
		s.addObserver("history", repo)
	}

	return s, nil
}

// addObserver queues events for a sink that does I/O. The queue closer is
// registered after the sink's backend so Close drains it first.
func (s *Services) addObserver(name string, obs session.Observer) {
	async := session.NewAsyncObserver(name, obs, session.DefaultObserverBuffer)
	s.Observers = append(s.Observers, async)
	s.closers = append(s.closers, async.Close)
}

// NewRiskClient builds the model client with the configured timeout,
// credentials and circuit breaker.
func NewRiskClient(ctx context.Context, cfg *config.Config) *riskclient.Client {
	hc := httpclient.New(cfg.PredictorRequestTimeout)
	hc = httpclient.WithCredentials(ctx, hc, httpclient.Credentials{
		TokenURL:     cfg.PredictorTokenURL,
		ClientID:     cfg.PredictorClientID,
		ClientSecret: cfg.PredictorClientSecret,
	})

	opts := []riskclient.Option{riskclient.WithHTTPClient(hc)}
	if cfg.PredictorBreakerEnabled {
		opts = append(opts, riskclient.WithCircuitBreaker(riskclient.BreakerConfig{}))
	}
	return riskclient.New(cfg.PredictorBaseURL, opts...)
}

// SessionOptions are the controller options every session of this process uses.
func (s *Services) SessionOptions(extra ...session.Option) []session.Option {
	opts := []session.Option{
		session.WithCatalog(s.Catalog),
		session.WithAutoExplain(s.Config.AutoExplain),
		session.WithRequestTimeout(s.Config.PredictorRequestTimeout),
	}
	for _, obs := range s.Observers {
		opts = append(opts, session.WithObserver(obs))
	}
	return append(opts, extra...)
}

// NewRegistry creates the live session registry backed by the session store.
func (s *Services) NewRegistry() (*session.Registry, error) {
	return session.NewRegistry(s.Config.SessionCacheSize, s.Store, s.Client, s.Client, s.SessionOptions()...)
}

// Close releases backends in reverse order of creation.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logger.Log.WithError(err).Warn("Failed to close backend")
		}
	}
	s.closers = nil
}
