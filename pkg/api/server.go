// Package api is the HTTP ingress and admin surface for carbonshiftd:
// request submission, on-demand scheduling, status, and a prometheus
// metrics endpoint. Modeled on pkg/api/server.go's gin.Engine-plus-Server
// struct shape, trimmed to this system's own handlers.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/federicogiustii/carbonshift/internal/catalog"
	"github.com/federicogiustii/carbonshift/internal/dispatcher"
	"github.com/federicogiustii/carbonshift/internal/domain"
	"github.com/federicogiustii/carbonshift/internal/partitioner"
	"github.com/federicogiustii/carbonshift/internal/recorder"
	"github.com/federicogiustii/carbonshift/internal/requestpool"
	"github.com/federicogiustii/carbonshift/internal/slotqueue"
	"github.com/federicogiustii/carbonshift/internal/solver"
)

// Config configures a Server.
type Config struct {
	JWTSecret      []byte
	RateLimitRPS   float64
	RateLimitBurst int
	Beta           int
	Epsilon        float64
	WallClockLimit time.Duration
}

// Server wires the request pool, scheduling pipeline, slot queues, and
// dispatcher behind an HTTP surface.
type Server struct {
	engine *gin.Engine

	pool      *requestpool.Pool
	cat       *catalog.Catalog
	intensity catalog.Intensity
	queues    *slotqueue.Queues
	dispatch  *dispatcher.Dispatcher
	rec       recorder.Recorder

	cfg Config
	log zerolog.Logger

	metrics  *Metrics
	registry *prometheus.Registry
}

// New builds a Server and registers its routes.
func New(
	pool *requestpool.Pool,
	cat *catalog.Catalog,
	intensity catalog.Intensity,
	queues *slotqueue.Queues,
	dispatch *dispatcher.Dispatcher,
	rec recorder.Recorder,
	cfg Config,
	log zerolog.Logger,
) *Server {
	registry := prometheus.NewRegistry()
	s := &Server{
		pool:      pool,
		cat:       cat,
		intensity: intensity,
		queues:    queues,
		dispatch:  dispatch,
		rec:       rec,
		cfg:       cfg,
		log:       log,
		metrics:   NewMetrics(registry),
		registry:  registry,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(s.requestLogger())

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)

	v1 := engine.Group("/v1")
	v1.POST("/requests", s.rateLimited(limiter), s.submitRequest)

	admin := v1.Group("/admin", RequireAdmin(cfg.JWTSecret))
	admin.POST("/schedule", s.runSchedule)
	admin.GET("/status", s.status)

	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	engine.GET("/healthz", s.health)

	s.engine = engine
	return s
}

// Handler returns the underlying http.Handler, for http.Server wiring.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}

func (s *Server) rateLimited(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// runScheduleCycle drains the pool, partitions, solves, records, and
// enqueues the resulting assignment onto the slot queues. It is the body
// of the admin /schedule route.
//
// On any failure before a result is produced, the drained requests are
// restored to the pool so NoFeasibleAssignment leaves the pool exactly as
// the caller found it — they may retry after widening epsilon or reducing
// beta without having lost anything in flight.
func (s *Server) runScheduleCycle(ctx context.Context) (*solver.Result, domain.Assignment, error) {
	requests := s.pool.Drain()
	s.metrics.ScheduleRuns.Inc()

	blocks := partitioner.Partition(requests, s.cfg.Beta)

	model, err := solver.Build(blocks, s.cat.Strategies(), s.intensity, s.cfg.Epsilon)
	if err != nil {
		s.pool.Restore(requests)
		s.metrics.ScheduleFailures.Inc()
		return nil, nil, err
	}

	budget := s.cfg.WallClockLimit
	if budget <= 0 {
		budget = solver.DefaultWallClockBudget
	}

	start := time.Now()
	result, err := model.Solve(ctx, budget)
	s.metrics.ScheduleDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.pool.Restore(requests)
		s.metrics.ScheduleFailures.Inc()
		return nil, nil, err
	}

	assignment := result.Assignment()

	if s.rec != nil {
		rows := recorder.BuildRows(assignment, s.cat, s.intensity)
		summary := recorder.BuildSummary(rows, s.intensity.Len(), string(result.Status), result.SolveTime.Seconds())
		if err := s.rec.Record(rows, summary); err != nil {
			s.log.Warn().Err(err).Msg("recording assignment run")
		}
	}

	for _, req := range requests {
		choice, ok := assignment[req.ID]
		if !ok {
			continue
		}
		entry := domain.SlotQueueEntry{Request: req, Strategy: choice.Strategy}
		if err := s.queues.Enqueue(choice.Slot, entry); err != nil {
			s.log.Warn().Err(err).Str("request_id", req.ID).Msg("enqueueing assignment")
		}
	}

	return result, assignment, nil
}
