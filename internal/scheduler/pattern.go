package scheduler

import (
	"context"
	"fmt"
	"github.com/kovalyov-valentin/read-later-bot/internal/model"
	"go.uber.org/zap"
	"sort"
	"time"
)

const (
	topHoursCount = 5
	topDaysCount  = 3
)

type EventSource interface {
	RecentEvents(ctx context.Context, limit int) ([]model.Event, error)
}

// Анализатор привычек чтения по журналу событий
type Analyzer struct {
	events EventSource
	cfg    Config
	logger *zap.Logger
}

func NewAnalyzer(events EventSource, cfg Config, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Analyzer{
		events: events,
		cfg:    cfg,
		logger: logger,
	}
}

func (a *Analyzer) Analyze(ctx context.Context) (model.ReadingPattern, error) {
	events, err := a.events.RecentEvents(ctx, a.cfg.EventWindow)
	if err != nil {
		return model.ReadingPattern{}, fmt.Errorf("load recent events: %w", err)
	}

	return a.AnalyzeEvents(events), nil
}

// События ожидаются от новых к старым, от этого зависит порядок часов с одинаковой частотой
func (a *Analyzer) AnalyzeEvents(events []model.Event) model.ReadingPattern {
	var reads []model.Event
	for _, e := range events {
		if e.Type == model.EventRead {
			reads = append(reads, e)
		}
	}

	if len(reads) == 0 {
		a.logger.Debug("no reading activity yet, using default pattern")
		return a.defaultPattern()
	}

	loc := a.cfg.location()

	var (
		hours = make([]int, 0, len(reads))
		days  = make([]int, 0, len(reads))
	)
	for _, e := range reads {
		if e.Timestamp.IsZero() {
			a.logger.Warn("skipping read event without timestamp", zap.Int64("event_id", e.ID))
			continue
		}

		t := e.Timestamp.In(loc)
		hours = append(hours, t.Hour())
		days = append(days, mondayFirst(t.Weekday()))
	}

	preferredHours := topN(rankByFrequency(hours), topHoursCount)
	if len(preferredHours) == 0 {
		preferredHours = a.cfg.defaultHours()
	}

	pattern := model.ReadingPattern{
		PreferredHours: preferredHours,
		PreferredDays:  topN(rankByFrequency(days), topDaysCount),
		ReadingTimes:   rankTimesOfDay(hours),
		TotalReads:     len(reads),
		HasData:        true,
	}

	a.logger.Debug("reading pattern detected",
		zap.Ints("preferred_hours", pattern.PreferredHours),
		zap.Ints("preferred_days", pattern.PreferredDays),
		zap.Int("total_reads", pattern.TotalReads),
	)

	return pattern
}

func (a *Analyzer) defaultPattern() model.ReadingPattern {
	return model.ReadingPattern{
		PreferredHours: a.cfg.defaultHours(),
		PreferredDays:  []int{0, 1, 2, 3, 4, 5, 6},
		ReadingTimes:   []model.TimeOfDay{model.Morning, model.Evening},
		TotalReads:     0,
		HasData:        false,
	}
}

// Каждый час попадает ровно в одну часть суток. Ночь переходит через полночь
func TimeOfDayOf(hour int) model.TimeOfDay {
	switch {
	case hour >= 6 && hour <= 11:
		return model.Morning
	case hour >= 12 && hour <= 17:
		return model.Afternoon
	case hour >= 18 && hour <= 22:
		return model.Evening
	default:
		return model.Night
	}
}

func rankTimesOfDay(hours []int) []model.TimeOfDay {
	buckets := make([]model.TimeOfDay, 0, len(hours))
	for _, h := range hours {
		buckets = append(buckets, TimeOfDayOf(h))
	}

	return rankByFrequency(buckets)
}

// Уникальные значения по убыванию частоты, при равенстве в порядке первого появления
func rankByFrequency[T comparable](values []T) []T {
	var (
		counts = make(map[T]int, len(values))
		order  []T
	)
	for _, v := range values {
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}
		counts[v]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	return order
}

func topN[T any](values []T, n int) []T {
	if len(values) > n {
		values = values[:n]
	}
	return append(make([]T, 0, len(values)), values...)
}

func mondayFirst(d time.Weekday) int {
	return (int(d) + 6) % 7
}
