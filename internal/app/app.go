// Package app wires the scoring engine, response cache, rate limiter,
// provider and orchestrator into one Service.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/abhisek/aptiq/internal/batch"
	"github.com/abhisek/aptiq/internal/cache"
	"github.com/abhisek/aptiq/internal/config"
	"github.com/abhisek/aptiq/internal/llm"
	"github.com/abhisek/aptiq/internal/logging"
	"github.com/abhisek/aptiq/internal/metrics"
	"github.com/abhisek/aptiq/internal/orchestrator"
	"github.com/abhisek/aptiq/internal/quiz"
	"github.com/abhisek/aptiq/internal/ratelimit"
	"github.com/abhisek/aptiq/internal/store"
)

// Service owns every component of a running aptiq instance.
type Service struct {
	cfg     config.Config
	logger  zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	store     *store.Store
	ownsStore bool

	bank     atomic.Pointer[quiz.MemoryBank]
	cache    cache.Store
	badger   *cache.Badger
	limiter  *ratelimit.Limiter
	provider llm.Provider
	orch     *orchestrator.Orchestrator
	batch    *batch.Processor
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithStore uses an already open store. The caller keeps ownership.
func WithStore(st *store.Store) Option {
	return func(s *Service) { s.store = st }
}

// WithProvider replaces the configured provider. The provider is used as
// given, without the standard middleware.
func WithProvider(p llm.Provider) Option {
	return func(s *Service) { s.provider = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New builds a Service from cfg. Close releases what it opened.
func New(ctx context.Context, cfg config.Config, opts ...Option) (svc *Service, err error) {
	s := &Service{
		cfg:     cfg,
		logger:  zerolog.Nop(),
		metrics: metrics.New(nil),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	if s.store == nil {
		path := cfg.DB.Path
		if path == "" {
			if path, err = store.DefaultDBPath(); err != nil {
				return nil, err
			}
		} else if err = store.EnsureDir(path); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		if s.store, err = store.Open(path); err != nil {
			return nil, err
		}
		s.ownsStore = true
	}

	bank, err := s.resolveBank(ctx)
	if err != nil {
		return nil, err
	}
	s.bank.Store(bank)

	if err := s.openCache(); err != nil {
		return nil, err
	}

	s.limiter = ratelimit.New(cfg.RateLimit.Limiter(), s.metrics)

	events := s.store.EventRepo()
	if s.provider == nil {
		s.provider, err = llm.NewProvider(ctx, cfg.LLM, llm.Deps{
			Recorder: events,
			Metrics:  s.metrics,
			Logger:   logging.Component(s.logger, "llm"),
		})
		if err != nil {
			return nil, err
		}
	}

	s.orch = orchestrator.New(s.provider, s.cache, s.limiter,
		orchestrator.WithConfig(orchestrator.Config{
			ProviderTimeout:  cfg.Orchestrator.ProviderTimeout,
			CacheTTL:         cfg.Cache.TTL,
			StructuredOutput: cfg.LLM.StructuredOutput,
			MaxTokens:        cfg.LLM.MaxTokens,
			Temperature:      cfg.LLM.Temperature,
		}),
		orchestrator.WithRecorder(events),
		orchestrator.WithMetrics(s.metrics),
		orchestrator.WithLogger(logging.Component(s.logger, "orchestrator")),
		orchestrator.WithClock(s.now),
	)

	s.batch = batch.New(s.handlers(),
		batch.WithConcurrency(cfg.Batch.Concurrency),
		batch.WithItemTimeout(cfg.Batch.ItemTimeout),
		batch.WithLogger(logging.Component(s.logger, "batch")),
		batch.WithMetrics(s.metrics),
	)

	s.logger.Debug().
		Str("provider", s.provider.ModelID()).
		Str("cache", cfg.Cache.Backend).
		Int("questions", len(bank.Questions())).
		Msg("service ready")

	return s, nil
}

func (s *Service) openCache() error {
	switch s.cfg.Cache.Backend {
	case config.CacheBadger:
		b, err := cache.OpenBadger(cache.BadgerConfig{
			Path:       s.cfg.Cache.Path,
			DefaultTTL: s.cfg.Cache.TTL,
			Clock:      s.now,
		})
		if err != nil {
			return err
		}
		s.badger = b
		s.cache = b
	case config.CacheMemory, "":
		s.cache = cache.NewMemory(cache.WithClock(s.now), cache.WithDefaultTTL(s.cfg.Cache.TTL))
	default:
		return fmt.Errorf("unknown cache backend %q", s.cfg.Cache.Backend)
	}
	return nil
}

// resolveBank prefers the configured YAML file, then the stored bank, then
// the seed bank, which is persisted so later runs find it in the store.
func (s *Service) resolveBank(ctx context.Context) (*quiz.MemoryBank, error) {
	if path := s.cfg.Questions.Path; path != "" {
		return quiz.LoadFile(path)
	}

	repo := s.store.QuestionRepo()
	stored, err := repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(stored) > 0 {
		return quiz.NewBank(stored, quiz.DefaultTraits...)
	}

	bank := quiz.DefaultBank()
	if err := repo.Replace(ctx, bank.Questions()); err != nil {
		return nil, fmt.Errorf("persist seed questions: %w", err)
	}
	return bank, nil
}

// ImportQuestions validates the YAML bank at path, stores it and makes it
// the active bank.
func (s *Service) ImportQuestions(ctx context.Context, path string) (*quiz.MemoryBank, error) {
	bank, err := quiz.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := s.store.QuestionRepo().Replace(ctx, bank.Questions()); err != nil {
		return nil, err
	}
	s.bank.Store(bank)
	return bank, nil
}

// Bank returns the active question bank.
func (s *Service) Bank() *quiz.MemoryBank { return s.bank.Load() }

func (s *Service) Metrics() *metrics.Metrics { return s.metrics }

func (s *Service) Store() *store.Store { return s.store }

func (s *Service) Provider() llm.Provider { return s.provider }

// ScoreQuiz scores answers against the active bank.
func (s *Service) ScoreQuiz(answers []quiz.Answer, topN int) (quiz.Result, error) {
	return quiz.ScoreQuiz(s.Bank(), answers, topN)
}

func (s *Service) GetGuidance(ctx context.Context, in orchestrator.GuidanceInput) orchestrator.Result {
	return s.orch.GetGuidance(ctx, in)
}

func (s *Service) RecommendStream(ctx context.Context, in orchestrator.StreamInput) orchestrator.Result {
	return s.orch.RecommendStream(ctx, in)
}

func (s *Service) Translate(ctx context.Context, in orchestrator.TranslateInput) orchestrator.Result {
	return s.orch.Translate(ctx, in)
}

// BatchProcess runs ops concurrently and returns results in input order.
func (s *Service) BatchProcess(ctx context.Context, ops []batch.Operation) []batch.ItemResult {
	return s.batch.Run(ctx, ops)
}

// OperationTypes lists the operation types BatchProcess accepts.
func (s *Service) OperationTypes() []string { return s.batch.Types() }

// Sweep purges expired cache entries and idle rate-limit identities.
func (s *Service) Sweep() (evicted, idle int, err error) {
	evicted, err = s.cache.Sweep()
	if err != nil {
		return 0, 0, fmt.Errorf("sweep cache: %w", err)
	}
	s.metrics.CacheEvictions.Add(float64(evicted))
	s.metrics.CacheEntries.Set(float64(s.cache.Len()))

	idle = s.limiter.Sweep(s.now())
	return evicted, idle, nil
}

// Run sweeps every SweepInterval until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			evicted, idle, err := s.Sweep()
			if err != nil {
				s.logger.Warn().Err(err).Msg("sweep failed")
				continue
			}
			if evicted > 0 || idle > 0 {
				s.logger.Debug().Int("evicted", evicted).Int("idle", idle).Msg("sweep")
			}
		}
	}
}

// Close releases the cache backend and, when the Service opened it, the
// store.
func (s *Service) Close() error {
	var errs []error
	if s.badger != nil {
		errs = append(errs, s.badger.Close())
		s.badger = nil
	}
	if s.ownsStore && s.store != nil {
		errs = append(errs, s.store.Close())
		s.store = nil
	}
	return errors.Join(errs...)
}
