package api

import (
	"context"
	"errors"
	"github.com/kovalyov-valentin/read-later-bot/internal/ingest"
	"github.com/kovalyov-valentin/read-later-bot/internal/metrics"
	"github.com/kovalyov-valentin/read-later-bot/internal/model"
	"github.com/kovalyov-valentin/read-later-bot/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"net/http"
	"time"
)

const shutdownTimeout = 10 * time.Second

type Planner interface {
	PrioritizeQueue(ctx context.Context, limit int) ([]model.ScoredArticle, error)
	SuggestReadingSession(ctx context.Context, minutes int) ([]model.ScoredArticle, error)
	CreateDigest(ctx context.Context, maxItems int) (model.Digest, error)
	OptimalBatchSize(ctx context.Context) (int, error)
	NextDeliveryTime(ctx context.Context, now time.Time) (time.Time, error)
	DeliverySchedule(ctx context.Context, now time.Time, days int) ([]model.ScheduleEntry, error)
	AnalyzeReadingPatterns(ctx context.Context) (model.ReadingPattern, error)
}

type Store interface {
	ArticleByID(ctx context.Context, id int64) (*model.Article, error)
	Search(ctx context.Context, text string, limit int) ([]model.Article, error)
	CategoryCounts(ctx context.Context) ([]model.CategoryCount, error)
	Statistics(ctx context.Context) (model.Statistics, error)
	MarkReadChanged(ctx context.Context, id int64) (found, changed bool, err error)
	DeleteArticle(ctx context.Context, id int64) (bool, error)
}

type Ingester interface {
	Ingest(ctx context.Context, url string) (ingest.Result, error)
}

// JSON API поверх планировщика и хранилища
type Server struct {
	echo     *echo.Echo
	addr     string
	planner  Planner
	store    Store
	ingester Ingester
	metrics  *metrics.Collector
	logger   *zap.Logger
	now      func() time.Time
}

func NewServer(
	addr string,
	planner Planner,
	store Store,
	ingester Ingester,
	collector *metrics.Collector,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		addr:     addr,
		planner:  planner,
		store:    store,
		ingester: ingester,
		metrics:  collector,
		logger:   logger,
		now:      time.Now,
	}

	e.HTTPErrorHandler = s.errorHandler
	e.Use(s.requestLogger())
	e.Use(middleware.Recover())

	s.routes()

	return s
}

func (s *Server) routes() {
	s.echo.GET("/health", s.health)
	s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))

	s.echo.GET("/queue", s.queue)
	s.echo.GET("/session", s.session)
	s.echo.POST("/digest", s.digest)
	s.echo.GET("/batch-size", s.batchSize)
	s.echo.GET("/next-delivery", s.nextDelivery)
	s.echo.GET("/schedule", s.schedule)
	s.echo.GET("/patterns", s.patterns)
	s.echo.GET("/stats", s.stats)
	s.echo.GET("/categories", s.categories)
	s.echo.GET("/search", s.search)

	s.echo.POST("/articles", s.saveArticle)
	s.echo.GET("/articles/:id", s.article)
	s.echo.POST("/articles/:id/read", s.markRead)
	s.echo.DELETE("/articles/:id", s.deleteArticle)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// Слушает addr до отмены контекста, потом аккуратно гасит сервер
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("http api listening", zap.String("addr", s.addr))
		errCh <- s.echo.Start(s.addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return ctx.Err()
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogLatency:  true,
		LogURI:      true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}

			if v.Error != nil {
				s.logger.Warn("request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}

			s.logger.Debug("request", fields...)
			return nil
		},
	})
}

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, msg := http.StatusInternalServerError, "internal server error"

	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(he.Code)
		}
	case errors.Is(err, storage.ErrNotFound):
		code, msg = http.StatusNotFound, "not found"
	case errors.Is(err, ingest.ErrInvalidURL):
		code, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, ingest.ErrNotHTML), errors.Is(err, ingest.ErrInsufficientContent):
		code, msg = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, ingest.ErrFetch):
		code, msg = http.StatusBadGateway, err.Error()
	default:
		s.logger.Error("unhandled error", zap.String("uri", c.Request().RequestURI), zap.Error(err))
	}

	_ = c.JSON(code, map[string]string{"error": msg})
}
