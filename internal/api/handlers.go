package api

import (
	"github.com/labstack/echo/v4"
	"net/http"
	"strconv"
	"strings"
)

const (
	defaultQueueLimit     = 10
	maxQueueLimit         = 100
	defaultSessionMinutes = 30
	defaultScheduleDays   = 7
	maxScheduleDays       = 30
)

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) queue(c echo.Context) error {
	limit, err := intParam(c, "limit", defaultQueueLimit, 0, maxQueueLimit)
	if err != nil {
		return err
	}

	queue, err := s.planner.PrioritizeQueue(c.Request().Context(), limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, queue)
}

func (s *Server) session(c echo.Context) error {
	minutes, err := intParam(c, "minutes", defaultSessionMinutes, 0, 24*60)
	if err != nil {
		return err
	}

	session, err := s.planner.SuggestReadingSession(c.Request().Context(), minutes)
	if err != nil {
		return err
	}

	var total int
	for _, item := range session {
		total += item.ReadingTime
	}

	return c.JSON(http.StatusOK, map[string]any{
		"minutes":            minutes,
		"total_reading_time": total,
		"articles":           session,
	})
}

// Без items размер подбирается по доле прочитанного
func (s *Server) digest(c echo.Context) error {
	ctx := c.Request().Context()

	items, err := intParam(c, "items", 0, 0, maxQueueLimit)
	if err != nil {
		return err
	}

	if c.QueryParam("items") == "" {
		if items, err = s.planner.OptimalBatchSize(ctx); err != nil {
			return err
		}
	}

	digest, err := s.planner.CreateDigest(ctx, items)
	if err != nil {
		return err
	}
	s.metrics.DigestBuilt()

	return c.JSON(http.StatusOK, digest)
}

func (s *Server) batchSize(c echo.Context) error {
	size, err := s.planner.OptimalBatchSize(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]int{"batch_size": size})
}

func (s *Server) nextDelivery(c echo.Context) error {
	next, err := s.planner.NextDeliveryTime(c.Request().Context(), s.now())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"next_delivery": next})
}

func (s *Server) schedule(c echo.Context) error {
	days, err := intParam(c, "days", defaultScheduleDays, 0, maxScheduleDays)
	if err != nil {
		return err
	}

	entries, err := s.planner.DeliverySchedule(c.Request().Context(), s.now(), days)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, entries)
}

func (s *Server) patterns(c echo.Context) error {
	pattern, err := s.planner.AnalyzeReadingPatterns(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, pattern)
}

func (s *Server) stats(c echo.Context) error {
	stats, err := s.store.Statistics(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, stats)
}

func (s *Server) categories(c echo.Context) error {
	counts, err := s.store.CategoryCounts(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, counts)
}

func (s *Server) search(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q parameter is required")
	}

	limit, err := intParam(c, "limit", defaultQueueLimit, 0, maxQueueLimit)
	if err != nil {
		return err
	}

	found, err := s.store.Search(c.Request().Context(), query, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, found)
}

type saveArticleRequest struct {
	URL string `json:"url"`
}

func (s *Server) saveArticle(c echo.Context) error {
	var req saveArticleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := s.ingester.Ingest(c.Request().Context(), req.URL)
	if err != nil {
		return err
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}

	return c.JSON(status, map[string]any{
		"created": result.Created,
		"article": result.Article,
	})
}

func (s *Server) article(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}

	article, err := s.store.ArticleByID(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, article)
}

func (s *Server) markRead(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}

	found, changed, err := s.store.MarkReadChanged(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "article not found")
	}
	if changed {
		s.metrics.ArticleRead()
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) deleteArticle(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}

	ok, err := s.store.DeleteArticle(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "article not found")
	}

	return c.NoContent(http.StatusNoContent)
}

func idParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid article id")
	}
	return id, nil
}

func intParam(c echo.Context, name string, def, lo, hi int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name+" parameter")
	}

	return n, nil
}
