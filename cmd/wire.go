package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/bnema/stockroom/internal/adapters/conversation/memory"
	redisconv "github.com/bnema/stockroom/internal/adapters/conversation/redis"
	tomlconv "github.com/bnema/stockroom/internal/adapters/conversation/toml"
	reportadapter "github.com/bnema/stockroom/internal/adapters/render/report"
	chainstore "github.com/bnema/stockroom/internal/adapters/secrets/chain"
	filestore "github.com/bnema/stockroom/internal/adapters/secrets/file"
	passstore "github.com/bnema/stockroom/internal/adapters/secrets/pass"
	"github.com/bnema/stockroom/internal/adapters/store/sqlstore"
	"github.com/bnema/stockroom/internal/application"
	"github.com/bnema/stockroom/internal/config"
	"github.com/bnema/stockroom/internal/domain"
	"github.com/bnema/stockroom/internal/logging"
	"github.com/bnema/stockroom/internal/ports"
)

type app struct {
	config     config.Config
	logger     zerolog.Logger
	store      *sqlstore.Store
	secrets    ports.SecretStore
	access     *application.AccessService
	allocation *application.AllocationService
	ingestion  *application.IngestionService
	lifecycle  *application.LifecycleService
	reports    *application.ReportService
	dialog     *application.Dialog

	dailyRenderer func(domain.DailyReport) (string, error)
	closers       []func() error
}

func wireApp() (*app, error) {
	cfg, err := config.Load(viper.New())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	secrets, err := wireSecrets(cfg.Secrets)
	if err != nil {
		return nil, fmt.Errorf("wire secret store: %w", err)
	}
	ctx := context.Background()
	if cfg.Database.DSN, err = resolveSecret(ctx, secrets, cfg.Database.DSNSecret, cfg.Database.DSN); err != nil {
		return nil, fmt.Errorf("resolve database dsn: %w", err)
	}
	if cfg.Redis.Password, err = resolveSecret(ctx, secrets, cfg.Redis.PasswordSecret, cfg.Redis.Password); err != nil {
		return nil, fmt.Errorf("resolve redis password: %w", err)
	}

	store, err := sqlstore.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("wire inventory store: %w", err)
	}

	clock := ports.SystemClock{}
	conversations, closeConversations, err := wireConversations(cfg, clock)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("wire conversation store: %w", err)
	}

	types := make([]domain.ResourceType, 0, len(cfg.Types))
	for _, t := range cfg.Types {
		types = append(types, domain.NormalizeType(t))
	}

	allocation := application.NewAllocationService(store, clock, cfg.Allocation.MaxPerRequest, logger)
	ingestion := application.NewIngestionService(store, clock, logger)

	return &app{
		config:     cfg,
		logger:     logger,
		store:      store,
		secrets:    secrets,
		access:     application.NewAccessService(store, clock),
		allocation: allocation,
		ingestion:  ingestion,
		lifecycle:  application.NewLifecycleService(store, clock, cfg.Lifecycle.MaxHold, logger),
		reports:    application.NewReportService(store, clock, cfg.Report.Location),
		dialog: application.NewDialog(conversations, store, allocation, ingestion, application.DialogConfig{
			Types:       types,
			IngestPrice: cfg.Ingest.Price,
		}, logger),
		dailyRenderer: reportadapter.Daily,
		closers:       []func() error{closeConversations, store.Close},
	}, nil
}

func wireSecrets(cfg config.Secrets) (ports.SecretStore, error) {
	switch cfg.Backend {
	case config.SecretsFile:
		return filestore.NewStore(cfg.Dir), nil
	case config.SecretsPass:
		return passstore.NewStore(cfg.PassPrefix), nil
	default:
		return chainstore.NewPassFirstWithFileFallback(cfg.PassPrefix, cfg.Dir)
	}
}

// resolveSecret returns the named secret, or fallback when no name is set.
func resolveSecret(ctx context.Context, secrets ports.SecretStore, name string, fallback string) (string, error) {
	if name == "" {
		return fallback, nil
	}
	value, err := secrets.Get(ctx, name)
	if err != nil {
		return "", err
	}
	return value, nil
}

func wireConversations(cfg config.Config, clock ports.Clock) (ports.ConversationStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Conversation.Backend {
	case config.BackendMemory:
		return memory.NewStore(cfg.Conversation.TTL, clock), noop, nil
	case config.BackendRedis:
		store := redisconv.NewStore(redisconv.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Conversation.TTL,
		}, clock)
		return store, store.Close, nil
	default:
		store, err := tomlconv.NewStore(cfg.Conversation.Path, cfg.Conversation.TTL, clock)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	}
}

func (a *app) close() error {
	var errs []error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
