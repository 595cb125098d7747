package scheduler

import (
	"context"
	"fmt"
	"github.com/google/uuid"
	"github.com/kovalyov-valentin/read-later-bot/internal/model"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"slices"
	"sort"
	"time"
)

// Часть хранилища, из которой читает планировщик
type Store interface {
	EventSource
	UnreadQueue(ctx context.Context, limit int) ([]model.Article, error)
	Statistics(ctx context.Context) (model.Statistics, error)
}

const scheduleHoursPerDay = 2

// Планировщик собирает из очереди и привычек чтения сессии, дайджесты и расписание доставки.
// Состояния между вызовами не хранит, все пересчитывается на каждый вызов
type Planner struct {
	store    Store
	analyzer *Analyzer
	scorer   *Scorer
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

func NewPlanner(store Store, cfg Config, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Planner{
		store:    store,
		analyzer: NewAnalyzer(store, cfg, logger),
		scorer:   NewScorer(cfg.Weights),
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Подменяет источник времени, нужно в тестах
func (p *Planner) WithClock(now func() time.Time) *Planner {
	p.now = now
	return p
}

func (p *Planner) Scorer() *Scorer {
	return p.scorer
}

// Не больше limit непрочитанных статей по убыванию приоритета.
// При равном приоритете сохраняется порядок хранилища
func (p *Planner) PrioritizeQueue(ctx context.Context, limit int) ([]model.ScoredArticle, error) {
	if limit <= 0 {
		return []model.ScoredArticle{}, nil
	}

	articles, err := p.store.UnreadQueue(ctx, p.cfg.QueueFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("load unread queue: %w", err)
	}

	if len(articles) == 0 {
		return []model.ScoredArticle{}, nil
	}

	stats, err := p.store.Statistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("load statistics: %w", err)
	}

	now := p.now()
	scored := lo.Map(articles, func(a model.Article, _ int) model.ScoredArticle {
		return model.ScoredArticle{Article: a, Score: p.scorer.Score(a, stats, now)}
	})

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return topN(scored, limit), nil
}

// Жадно набираем статьи в порядке приоритета. Если статья не влезает, пропускаем ее
// и идем дальше, более короткая может еще поместиться
func (p *Planner) SuggestReadingSession(ctx context.Context, minutes int) ([]model.ScoredArticle, error) {
	queue, err := p.PrioritizeQueue(ctx, p.cfg.SessionQueueLimit)
	if err != nil {
		return nil, err
	}

	var (
		session = make([]model.ScoredArticle, 0, len(queue))
		total   int
	)
	for _, item := range queue {
		if total+item.ReadingTime > minutes {
			continue
		}

		session = append(session, item)
		total += item.ReadingTime
	}

	return session, nil
}

func (p *Planner) CreateDigest(ctx context.Context, maxItems int) (model.Digest, error) {
	items, err := p.PrioritizeQueue(ctx, maxItems)
	if err != nil {
		return model.Digest{}, err
	}

	digest := model.Digest{
		ID:        uuid.New(),
		Items:     items,
		Groups:    []model.CategoryGroup{},
		CreatedAt: p.now(),
	}

	index := make(map[string]int)
	for _, item := range items {
		category := item.Category
		if category == "" {
			category = model.DefaultCategory
		}

		i, ok := index[category]
		if !ok {
			i = len(digest.Groups)
			index[category] = i
			digest.Groups = append(digest.Groups, model.CategoryGroup{Category: category})
		}

		digest.Groups[i].Articles = append(digest.Groups[i].Articles, item)
		digest.TotalReadingTime += item.ReadingTime
	}

	return digest, nil
}

// Чем больше пользователь дочитывает, тем больше дайджест
func (p *Planner) OptimalBatchSize(ctx context.Context) (int, error) {
	stats, err := p.store.Statistics(ctx)
	if err != nil {
		return 0, fmt.Errorf("load statistics: %w", err)
	}

	for _, tier := range p.cfg.BatchTiers {
		if stats.ReadPercentage >= tier.MinReadPercentage {
			return tier.Size, nil
		}
	}

	return p.cfg.MinimumBatchSize, nil
}

func (p *Planner) AnalyzeReadingPatterns(ctx context.Context) (model.ReadingPattern, error) {
	return p.analyzer.Analyze(ctx)
}

// Ближайший предпочитаемый час строго после текущего, иначе самый ранний час завтра
func (p *Planner) NextDeliveryTime(ctx context.Context, now time.Time) (time.Time, error) {
	pattern, err := p.analyzer.Analyze(ctx)
	if err != nil {
		return time.Time{}, err
	}

	hours := slices.Clone(pattern.PreferredHours)
	if len(hours) == 0 {
		hours = p.cfg.defaultHours()
	}
	slices.Sort(hours)

	now = now.In(p.cfg.location())
	for _, h := range hours {
		if h > now.Hour() {
			return atHour(now, 0, h), nil
		}
	}

	return atHour(now, 1, hours[0]), nil
}

// Два самых частых часа чтения на каждый из days дней. Слоты не позже now отбрасываем
func (p *Planner) DeliverySchedule(ctx context.Context, now time.Time, days int) ([]model.ScheduleEntry, error) {
	schedule := []model.ScheduleEntry{}
	if days <= 0 {
		return schedule, nil
	}

	pattern, err := p.analyzer.Analyze(ctx)
	if err != nil {
		return nil, err
	}

	hours := topN(pattern.PreferredHours, scheduleHoursPerDay)

	now = now.In(p.cfg.location())
	for day := 0; day < days; day++ {
		for _, h := range hours {
			at := atHour(now, day, h)
			if !at.After(now) {
				continue
			}

			schedule = append(schedule, model.ScheduleEntry{
				DeliveryTime:     at,
				Hour:             h,
				DayOfWeek:        at.Weekday().String(),
				RecommendedItems: p.cfg.MaxItemsPerDelivery,
			})
		}
	}

	return schedule, nil
}

// Текущий час входит в привычные часы чтения
func (p *Planner) ShouldSendDigestNow(ctx context.Context, now time.Time) (bool, error) {
	pattern, err := p.analyzer.Analyze(ctx)
	if err != nil {
		return false, err
	}

	return slices.Contains(pattern.PreferredHours, now.In(p.cfg.location()).Hour()), nil
}

func (p *Planner) RecommendedReadingTime(article model.Article) string {
	switch {
	case article.ReadingTime <= 2:
		return "Quick break"
	case article.ReadingTime <= 5:
		return "Coffee break"
	case article.ReadingTime <= 10:
		return "Lunch break"
	case article.ReadingTime <= 20:
		return "Evening reading"
	default:
		return "Weekend deep dive"
	}
}

func atHour(t time.Time, dayOffset, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+dayOffset, hour, 0, 0, 0, t.Location())
}
