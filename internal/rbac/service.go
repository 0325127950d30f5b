package rbac

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Service orchestrates governance audits over an Engine.
type Service struct {
	engine *Engine
	cache  *ReportCache
	logger *slog.Logger
	group  singleflight.Group
	now    func() time.Time
}

// NewService constructs a Service. cache may be nil.
func NewService(engine *Engine, cache *ReportCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{engine: engine, cache: cache, logger: logger, now: time.Now}
}

// Engine returns the tables the service was built with.
func (s *Service) Engine() *Engine {
	return s.engine
}

// Authorizer returns the engine's authorizer.
func (s *Service) Authorizer() *Authorizer {
	return s.engine.Authorizer
}

// Audit returns the governance report for the current policy, served from
// cache when available. Concurrent misses share one computation.
func (s *Service) Audit(ctx context.Context) (AuditRecord, error) {
	rec, err := s.cache.Get(ctx, s.engine.Fingerprint)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrReportNotCached) {
		s.logger.Warn("governance report cache read", slog.Any("error", err))
	}
	resultChan := s.group.DoChan(s.engine.Fingerprint, func() (interface{}, error) {
		return s.RefreshAudit(context.WithoutCancel(ctx), uuid.NewString())
	})
	select {
	case <-ctx.Done():
		return AuditRecord{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return AuditRecord{}, res.Err
		}
		return res.Val.(AuditRecord), nil
	}
}

// LatestAudit returns the most recent stored audit, which may have been
// produced by the scheduled job for a different policy revision.
func (s *Service) LatestAudit(ctx context.Context) (AuditRecord, error) {
	return s.cache.Latest(ctx)
}

// RefreshAudit recomputes the report and stores it. Cache write failures are
// logged; the fresh record is still returned.
func (s *Service) RefreshAudit(ctx context.Context, runID string) (AuditRecord, error) {
	rec := AuditRecord{
		RunID:         runID,
		PolicyVersion: s.engine.Version,
		Fingerprint:   s.engine.Fingerprint,
		GeneratedAt:   s.now().UTC(),
		Report:        s.engine.Audit(),
	}
	if err := s.cache.Store(ctx, rec); err != nil {
		s.logger.Warn("governance report cache write", slog.String("run_id", runID), slog.Any("error", err))
	}
	if !rec.Report.OK() {
		s.logger.Warn("governance violations detected",
			slog.String("run_id", runID),
			slog.Int("violations", len(rec.Report.Violations)),
			slog.String("fingerprint", rec.Fingerprint),
		)
	}
	return rec, nil
}
