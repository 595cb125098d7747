package fetcher

import (
	"context"
	"fmt"
	"github.com/kovalyov-valentin/read-later-bot/internal/ingest"
	"github.com/kovalyov-valentin/read-later-bot/internal/model"
	"github.com/kovalyov-valentin/read-later-bot/internal/source"
	"github.com/tomakado/containers/set"
	"go.uber.org/zap"
	"strings"
	"sync"
	"time"
)

type Ingester interface {
	Ingest(ctx context.Context, url string) (ingest.Result, error)
}

type SourceProvider interface {
	Sources(ctx context.Context) ([]model.Source, error)
}

type Source interface {
	ID() int64
	Name() string
	Fetch(ctx context.Context) ([]model.Item, error)
}

// Периодически обходит подписки и отправляет новые ссылки из лент в очередь на чтение
type Fetcher struct {
	ingester Ingester
	sources  SourceProvider
	// Как из модели получить клиента ленты, в тестах подменяется
	newSource func(model.Source) Source

	fetchInterval  time.Duration
	filterKeywords []string
	logger         *zap.Logger
}

func NewFetcher(
	ingester Ingester,
	sourceProvider SourceProvider,
	fetchInterval time.Duration,
	filterKeywords []string,
	logger *zap.Logger,
) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Fetcher{
		ingester:       ingester,
		sources:        sourceProvider,
		newSource:      newRSSSource,
		fetchInterval:  fetchInterval,
		filterKeywords: lowerAll(filterKeywords),
		logger:         logger,
	}
}

func newRSSSource(m model.Source) Source {
	return source.NewRSSSourceFromModel(m)
}

func (f *Fetcher) Start(ctx context.Context) error {
	ticker := time.NewTicker(f.fetchInterval)
	defer ticker.Stop()

	if err := f.Fetch(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := f.Fetch(ctx); err != nil {
				return err
			}
		}
	}
}

// Ошибка одной ленты или страницы не мешает обработке остальных
func (f *Fetcher) Fetch(ctx context.Context) error {
	sources, err := f.sources.Sources(ctx)
	if err != nil {
		return fmt.Errorf("list sources: %w", err)
	}

	var wg sync.WaitGroup

	for _, src := range sources {
		wg.Add(1)

		go func(source Source) {
			defer wg.Done()

			items, err := source.Fetch(ctx)
			if err != nil {
				f.logger.Error("failed to fetch items from source",
					zap.String("source", source.Name()),
					zap.Error(err),
				)
				return
			}

			f.processItems(ctx, source, items)
		}(f.newSource(src))
	}

	wg.Wait()

	return nil
}

func (f *Fetcher) processItems(ctx context.Context, source Source, items []model.Item) {
	var saved int

	for _, item := range items {
		if ctx.Err() != nil {
			return
		}

		if item.Link == "" || f.itemShouldBeSkipped(item) {
			continue
		}

		result, err := f.ingester.Ingest(ctx, item.Link)
		if err != nil {
			f.logger.Warn("failed to ingest feed item",
				zap.String("source", source.Name()),
				zap.String("link", item.Link),
				zap.Error(err),
			)
			continue
		}

		if result.Created {
			saved++
		}
	}

	f.logger.Info("source processed",
		zap.String("source", source.Name()),
		zap.Int("items", len(items)),
		zap.Int("saved", saved),
	)
}

// Пропускаем запись, если ключевое слово есть среди ее категорий или в заголовке
func (f *Fetcher) itemShouldBeSkipped(item model.Item) bool {
	categoriesSet := set.New(lowerAll(item.Categories)...)
	title := strings.ToLower(item.Title)

	for _, keyword := range f.filterKeywords {
		if categoriesSet.Contains(keyword) || strings.Contains(title, keyword) {
			return true
		}
	}

	return false
}

func lowerAll(values []string) []string {
	lowered := make([]string, 0, len(values))
	for _, v := range values {
		lowered = append(lowered, strings.ToLower(v))
	}
	return lowered
}
