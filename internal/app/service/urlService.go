package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/atinyakov/kv-url-shortener/internal/apperrors"
	"github.com/atinyakov/kv-url-shortener/internal/metrics"
	"github.com/atinyakov/kv-url-shortener/internal/models"
	"github.com/atinyakov/kv-url-shortener/internal/storage"
)

const (
	// DefaultStoreTimeout bounds every store call.
	DefaultStoreTimeout = 3 * time.Second

	maxIDAttempts = 3
	scanBatchSize = 100
)

var defaultTracer = otel.Tracer("github.com/atinyakov/kv-url-shortener/internal/app/service")

type URLService struct {
	store        Store
	ids          *IDGenerator
	prober       Prober
	ready        Readiness
	logger       *zap.Logger
	baseURL      string
	storeTimeout time.Duration
	metrics      *metrics.Metrics
	tracer       trace.Tracer
}

type Option func(*URLService)

func WithStoreTimeout(d time.Duration) Option {
	return func(s *URLService) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *URLService) {
		s.metrics = m
	}
}

// WithTracer sets the tracer for service spans. The global provider's
// tracer is used otherwise.
func WithTracer(t trace.Tracer) Option {
	return func(s *URLService) {
		if t != nil {
			s.tracer = t
		}
	}
}

func NewURL(store Store, ids *IDGenerator, prober Prober, ready Readiness, logger *zap.Logger, baseURL string, opts ...Option) *URLService {
	s := &URLService{
		store:        store,
		ids:          ids,
		prober:       prober,
		ready:        ready,
		logger:       logger,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		storeTimeout: DefaultStoreTimeout,
		tracer:       defaultTracer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Shorten returns the short link for longURL, creating the mapping if the
// URL has not been seen before. Created is false for an existing mapping.
func (s *URLService) Shorten(ctx context.Context, longURL string) (*models.ShortenResult, error) {
	ctx, span := s.tracer.Start(ctx, "URLService.Shorten")
	defer span.End()

	res, outcome, err := s.shorten(ctx, longURL)
	s.metrics.ObserveShorten(outcome)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("short_id", res.ShortID), attribute.Bool("created", res.Created))
	return res, nil
}

func (s *URLService) shorten(ctx context.Context, longURL string) (*models.ShortenResult, string, error) {
	if strings.TrimSpace(longURL) == "" {
		return nil, metrics.ShortenInvalid, apperrors.ErrURLRequired
	}
	if !s.ready.Connected() {
		return nil, metrics.ShortenUnavailable, apperrors.ErrStoreUnavailable
	}
	if !s.prober.Probe(ctx, longURL) {
		return nil, metrics.ShortenUnreachable, apperrors.ErrURLUnreachable
	}

	if res, err := s.existing(ctx, longURL); err != nil || res != nil {
		return res, outcomeOf(err, metrics.ShortenExisting), err
	}

	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		id, err := s.ids.Generate()
		if err != nil {
			s.logger.Error("failed to generate short id", zap.Error(err))
			return nil, metrics.ShortenFailed, apperrors.Wrap(err, apperrors.CodeInternal, apperrors.ErrInternal.Message)
		}

		written, err := s.writePair(ctx, id, longURL)
		if err != nil {
			return nil, outcomeOf(err, ""), err
		}
		if written {
			s.logger.Info("short url created", zap.String("short_id", id), zap.String("url", longURL))
			return s.result(id, longURL, true), metrics.ShortenCreated, nil
		}

		// Another request stored the same URL first.
		if res, err := s.existing(ctx, longURL); err != nil || res != nil {
			return res, outcomeOf(err, metrics.ShortenExisting), err
		}

		s.logger.Warn("short id collision", zap.String("short_id", id), zap.Int("attempt", attempt))
	}

	s.logger.Error("short id collisions exhausted", zap.String("url", longURL), zap.Int("attempts", maxIDAttempts))
	return nil, metrics.ShortenFailed, apperrors.ErrInternal
}

// existing returns the stored mapping for longURL, or nil if there is none.
func (s *URLService) existing(ctx context.Context, longURL string) (*models.ShortenResult, error) {
	key := storage.ReverseKey(longURL)

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	id, err := s.store.Get(sctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.storeError("get", key, err)
	}
	return s.result(id, longURL, false), nil
}

func (s *URLService) writePair(ctx context.Context, id, longURL string) (bool, error) {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	ok, err := s.store.MSetNX(sctx, map[string]string{
		storage.ForwardKey(id):      longURL,
		storage.ReverseKey(longURL): id,
	})
	if err != nil {
		return false, s.storeError("msetnx", storage.ForwardKey(id), err)
	}
	return ok, nil
}

// Resolve returns the long URL stored for shortID.
func (s *URLService) Resolve(ctx context.Context, shortID string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "URLService.Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("short_id", shortID))

	if !s.ready.Connected() {
		return "", apperrors.ErrStoreUnavailable
	}
	if !s.ids.Valid(shortID) {
		return "", apperrors.ErrURLNotFound
	}

	key := storage.ForwardKey(shortID)
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	long, err := s.store.Get(sctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", apperrors.ErrURLNotFound
	}
	if err != nil {
		err = s.storeError("get", key, err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return long, nil
}

// ListAll returns every short id with its long URL. The result is a
// best-effort snapshot; keys removed between pages are skipped.
func (s *URLService) ListAll(ctx context.Context) (map[string]string, error) {
	ctx, span := s.tracer.Start(ctx, "URLService.ListAll")
	defer span.End()

	if !s.ready.Connected() {
		return nil, apperrors.ErrStoreUnavailable
	}

	all := make(map[string]string)
	var cursor uint64
	for {
		keys, next, err := s.scan(ctx, cursor)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		if len(keys) > 0 {
			vals, err := s.mget(ctx, keys)
			if err != nil {
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}
			for k, v := range vals {
				if id, ok := storage.ShortIDFromKey(k); ok {
					all[id] = v
				}
			}
		}

		if next == 0 {
			break
		}
		cursor = next
	}

	span.SetAttributes(attribute.Int("count", len(all)))
	return all, nil
}

func (s *URLService) scan(ctx context.Context, cursor uint64) ([]string, uint64, error) {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	keys, next, err := s.store.Scan(sctx, cursor, storage.ForwardPrefix+"*", scanBatchSize)
	if err != nil {
		return nil, 0, s.storeError("scan", storage.ForwardPrefix+"*", err)
	}
	return keys, next, nil
}

func (s *URLService) mget(ctx context.Context, keys []string) (map[string]string, error) {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	vals, err := s.store.MGet(sctx, keys)
	if err != nil {
		return nil, s.storeError("mget", keys[0], err)
	}
	return vals, nil
}

func (s *URLService) result(id, longURL string, created bool) *models.ShortenResult {
	return &models.ShortenResult{
		ShortID:      id,
		Original:     longURL,
		ShortenedURL: s.baseURL + "/" + id,
		Created:      created,
	}
}

// storeError logs err and maps it to the error returned to callers. A
// deadline expiry means the store stopped answering.
func (s *URLService) storeError(op, key string, err error) error {
	s.logger.Error("store operation failed",
		zap.String("operation", op),
		zap.String("key", key),
		zap.Error(err),
	)
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(err, apperrors.CodeUnavailable, apperrors.ErrStoreUnavailable.Message)
	}
	return apperrors.Wrap(err, apperrors.CodeInternal, apperrors.ErrInternal.Message)
}

func outcomeOf(err error, ok string) string {
	switch {
	case err == nil:
		return ok
	case apperrors.IsUnavailable(err):
		return metrics.ShortenUnavailable
	default:
		return metrics.ShortenFailed
	}
}
