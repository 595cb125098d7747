package memory

import (
	"context"
	"github.com/kovalyov-valentin/read-later-bot/internal/model"
	"github.com/kovalyov-valentin/read-later-bot/internal/storage"
	"sort"
	"strings"
	"sync"
	"time"
)

// Хранилище в памяти процесса. Семантика та же, что у Postgres хранилища
type Storage struct {
	mu sync.RWMutex

	articles []model.Article
	byURL    map[string]int64
	events   []model.Event
	sources  []model.Source
	prefs    map[string]string

	nextArticleID int64
	nextEventID   int64
	nextSourceID  int64

	now func() time.Time
}

func New() *Storage {
	return &Storage{
		byURL: make(map[string]int64),
		prefs: make(map[string]string),
		now:   time.Now,
	}
}

// Подменяет часы, нужно в тестах
func (s *Storage) WithClock(now func() time.Time) *Storage {
	s.now = now
	return s
}

func (s *Storage) SaveArticle(ctx context.Context, article model.Article) (int64, error) {
	id, _, err := s.CreateArticle(ctx, article)
	return id, err
}

func (s *Storage) CreateArticle(_ context.Context, article model.Article) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byURL[article.URL]; ok {
		return id, false, nil
	}

	article = article.Normalize(s.now().UTC())
	article.Tags = append([]string{}, article.Tags...)

	s.nextArticleID++
	article.ID = s.nextArticleID

	s.articles = append(s.articles, article)
	s.byURL[article.URL] = article.ID
	s.appendEvent(article.ID, model.EventSaved, article.SavedAt)

	return article.ID, true, nil
}

func (s *Storage) ArticleByID(_ context.Context, id int64) (*model.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, storage.ErrNotFound
	}

	article := copyArticle(s.articles[i])
	return &article, nil
}

func (s *Storage) ArticleByURL(ctx context.Context, url string) (*model.Article, error) {
	s.mu.RLock()
	id, ok := s.byURL[url]
	s.mu.RUnlock()

	if !ok {
		return nil, storage.ErrNotFound
	}

	return s.ArticleByID(ctx, id)
}

func (s *Storage) UnreadQueue(_ context.Context, limit int) ([]model.Article, error) {
	return s.filter(limit, func(a model.Article) bool {
		return a.Status == model.StatusUnread
	}), nil
}

func (s *Storage) ArticlesByCategory(_ context.Context, category string, limit int) ([]model.Article, error) {
	return s.filter(limit, func(a model.Article) bool {
		return a.Category == category
	}), nil
}

func (s *Storage) Search(_ context.Context, text string, limit int) ([]model.Article, error) {
	text = strings.ToLower(text)

	return s.filter(limit, func(a model.Article) bool {
		return strings.Contains(strings.ToLower(a.Title), text) ||
			strings.Contains(strings.ToLower(a.Content), text)
	}), nil
}

func (s *Storage) CategoryCounts(_ context.Context) ([]model.CategoryCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.categoryCounts(), nil
}

func (s *Storage) MarkRead(ctx context.Context, id int64) (bool, error) {
	found, _, err := s.MarkReadChanged(ctx, id)
	return found, err
}

func (s *Storage) MarkReadChanged(_ context.Context, id int64) (found, changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false, false, nil
	}

	if s.articles[i].IsRead() {
		return true, false, nil
	}

	now := s.now().UTC()
	s.articles[i].Status = model.StatusRead
	s.articles[i].ReadAt = &now
	s.appendEvent(id, model.EventRead, now)

	return true, true, nil
}

func (s *Storage) UpdateCategory(_ context.Context, id int64, category string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}

	s.articles[i].Category = category
	return true, nil
}

func (s *Storage) DeleteArticle(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}

	delete(s.byURL, s.articles[i].URL)
	s.articles = append(s.articles[:i], s.articles[i+1:]...)
	return true, nil
}

func (s *Storage) Statistics(_ context.Context) (model.Statistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var read, totalTime, readTime int
	for _, a := range s.articles {
		totalTime += a.ReadingTime
		if a.IsRead() {
			read++
			readTime += a.ReadingTime
		}
	}

	var top string
	if counts := s.categoryCounts(); len(counts) > 0 {
		top = counts[0].Category
	}

	return model.NewStatistics(len(s.articles), read, totalTime, readTime, top), nil
}

func (s *Storage) RecentEvents(_ context.Context, limit int) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]model.Event, 0, len(s.events))
	for i := len(s.events) - 1; i >= 0; i-- {
		event := s.events[i]
		if j := s.indexOf(event.ArticleID); j >= 0 {
			event.Title = s.articles[j].Title
			event.URL = s.articles[j].URL
		}
		events = append(events, event)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})

	if limit < 0 {
		limit = 0
	}
	if len(events) > limit {
		events = events[:limit]
	}

	return events, nil
}

func (s *Storage) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().UTC().Add(-olderThan)

	var (
		kept    = s.articles[:0]
		deleted int64
	)
	for _, a := range s.articles {
		if a.IsRead() && a.ReadAt != nil && a.ReadAt.Before(cutoff) {
			delete(s.byURL, a.URL)
			deleted++
			continue
		}
		kept = append(kept, a)
	}
	s.articles = kept

	events := s.events[:0]
	for _, e := range s.events {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		events = append(events, e)
	}
	s.events = events

	return deleted, nil
}

func (s *Storage) Sources(_ context.Context) ([]model.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.Source{}, s.sources...), nil
}

func (s *Storage) SourceByID(_ context.Context, id int64) (*model.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, src := range s.sources {
		if src.ID == id {
			return &src, nil
		}
	}

	return nil, storage.ErrNotFound
}

func (s *Storage) Add(_ context.Context, source model.Source) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if source.CreatedAt.IsZero() {
		source.CreatedAt = s.now().UTC()
	}

	s.nextSourceID++
	source.ID = s.nextSourceID
	s.sources = append(s.sources, source)

	return source.ID, nil
}

func (s *Storage) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, src := range s.sources {
		if src.ID == id {
			s.sources = append(s.sources[:i], s.sources[i+1:]...)
			return true, nil
		}
	}

	return false, nil
}

// Статьи, подходящие под условие, сначала недавно сохраненные
func (s *Storage) filter(limit int, match func(model.Article) bool) []model.Article {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []model.Article{}
	for _, a := range s.articles {
		if match(a) {
			result = append(result, copyArticle(a))
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].SavedAt.Equal(result[j].SavedAt) {
			return result[i].SavedAt.After(result[j].SavedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit < 0 {
		limit = 0
	}
	if len(result) > limit {
		result = result[:limit]
	}

	return result
}

func (s *Storage) categoryCounts() []model.CategoryCount {
	counts := make(map[string]int)
	for _, a := range s.articles {
		counts[a.Category]++
	}

	result := make([]model.CategoryCount, 0, len(counts))
	for category, count := range counts {
		result = append(result, model.CategoryCount{Category: category, Count: count})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Category < result[j].Category
	})

	return result
}

func (s *Storage) appendEvent(articleID int64, eventType model.EventType, ts time.Time) {
	s.nextEventID++
	s.events = append(s.events, model.Event{
		ID:        s.nextEventID,
		ArticleID: articleID,
		Type:      eventType,
		Timestamp: ts,
	})
}

func (s *Storage) indexOf(id int64) int {
	for i, a := range s.articles {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func copyArticle(a model.Article) model.Article {
	a.Tags = append([]string{}, a.Tags...)
	if a.ReadAt != nil {
		readAt := *a.ReadAt
		a.ReadAt = &readAt
	}
	return a
}

func (s *Storage) Preference(_ context.Context, key, def string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if value, ok := s.prefs[key]; ok {
		return value, nil
	}
	return def, nil
}

func (s *Storage) SetPreference(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefs[key] = value
	return nil
}
