package scheduler

import (
	"context"
	"github.com/kovalyov-valentin/read-later-bot/internal/model"
	"time"
)

// Хранилище в памяти для тестов планировщика
type fakeStore struct {
	queue  []model.Article
	events []model.Event
	stats  model.Statistics

	queueErr  error
	eventsErr error
	statsErr  error

	queueLimits []int
	eventLimits []int
	statsCalls  int
}

func (s *fakeStore) UnreadQueue(_ context.Context, limit int) ([]model.Article, error) {
	s.queueLimits = append(s.queueLimits, limit)
	if s.queueErr != nil {
		return nil, s.queueErr
	}

	if len(s.queue) > limit {
		return s.queue[:limit], nil
	}
	return s.queue, nil
}

func (s *fakeStore) RecentEvents(_ context.Context, limit int) ([]model.Event, error) {
	s.eventLimits = append(s.eventLimits, limit)
	if s.eventsErr != nil {
		return nil, s.eventsErr
	}

	if len(s.events) > limit {
		return s.events[:limit], nil
	}
	return s.events, nil
}

func (s *fakeStore) Statistics(_ context.Context) (model.Statistics, error) {
	s.statsCalls++
	if s.statsErr != nil {
		return model.Statistics{}, s.statsErr
	}
	return s.stats, nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Location = time.UTC
	return cfg
}

func readAt(ts time.Time) model.Event {
	return model.Event{Type: model.EventRead, Timestamp: ts}
}

func savedAt(ts time.Time) model.Event {
	return model.Event{Type: model.EventSaved, Timestamp: ts}
}

func at(day, hour int) time.Time {
	return time.Date(2026, time.October, day, hour, 30, 0, 0, time.UTC)
}
