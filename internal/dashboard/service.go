// Package dashboard aggregates the per-company counters shown on the
// portal landing page.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/nixcon/nixcon/internal/platform/cache"
	"github.com/nixcon/nixcon/internal/tasks"
)

// Counter counts rows of one company.
type Counter interface {
	Count(ctx context.Context, companyID int64) (int, error)
}

// TaskStats reports open and overdue tasks of one company.
type TaskStats interface {
	Stats(ctx context.Context, companyID int64) (tasks.Stats, error)
}

// Summary is the dashboard payload.
type Summary struct {
	CompanyID    int64     `json:"company_id"`
	Clients      int       `json:"clients"`
	OpenTasks    int       `json:"open_tasks"`
	OverdueTasks int       `json:"overdue_tasks"`
	Documents    int       `json:"documents"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// Service builds summaries, optionally caching them briefly in Redis.
type Service struct {
	clients   Counter
	tasks     TaskStats
	documents Counter
	redis     redis.Cmdable
	ttl       time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds a Service. A nil client or zero ttl disables caching.
func NewService(clients Counter, taskStats TaskStats, documents Counter, client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{
		clients:   clients,
		tasks:     taskStats,
		documents: documents,
		redis:     client,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
	}
}

func cacheKey(companyID int64) string {
	return "dashboard:empresa:" + strconv.FormatInt(companyID, 10)
}

// Summary returns the counters of a company.
func (s *Service) Summary(ctx context.Context, companyID int64) (Summary, error) {
	caching := s.redis != nil && s.ttl > 0
	if caching {
		var cached Summary
		err := cache.GetJSON(ctx, s.redis, cacheKey(companyID), &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("dashboard cache read", slog.Int64("company_id", companyID), slog.Any("error", err))
		}
	}

	sum := Summary{CompanyID: companyID, GeneratedAt: s.now().UTC()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.clients.Count(gctx, companyID)
		sum.Clients = n
		return err
	})
	g.Go(func() error {
		st, err := s.tasks.Stats(gctx, companyID)
		sum.OpenTasks, sum.OverdueTasks = st.Open, st.Overdue
		return err
	})
	g.Go(func() error {
		n, err := s.documents.Count(gctx, companyID)
		sum.Documents = n
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	if caching {
		if err := cache.SetJSON(ctx, s.redis, cacheKey(companyID), sum, s.ttl); err != nil {
			s.logger.Warn("dashboard cache write", slog.Int64("company_id", companyID), slog.Any("error", err))
		}
	}
	return sum, nil
}
