package scheduler

import (
	"github.com/kovalyov-valentin/read-later-bot/internal/model"
	"math"
	"time"
	"unicode/utf8"
)

// Считает приоритет статьи в очереди. Чем больше, тем раньше читать.
// Значение не ограничено снизу и может быть отрицательным
type Scorer struct {
	weights Weights
}

func NewScorer(weights Weights) *Scorer {
	return &Scorer{weights: weights}
}

func (s *Scorer) Score(article model.Article, stats model.Statistics, now time.Time) float64 {
	return s.recency(article.SavedAt, now) +
		s.readingTime(article.ReadingTime) +
		s.categoryAffinity(article.Category, stats.TopCategory) +
		s.authorPresence(article.Author) +
		s.descriptionRichness(article.Description)
}

func (s *Scorer) recency(savedAt, now time.Time) float64 {
	if savedAt.IsZero() {
		return 0
	}

	// Из-за рассинхрона часов статья может оказаться сохраненной "в будущем", считаем ее сегодняшней
	days := math.Floor(now.Sub(savedAt).Hours() / 24)
	if days < 0 {
		days = 0
	}

	return math.Max(0, float64(s.weights.RecencyWindowDays)-days)
}

func (s *Scorer) readingTime(minutes int) float64 {
	switch {
	case minutes <= s.weights.QuickReadMinutes:
		return s.weights.QuickReadBonus
	case minutes <= s.weights.ShortReadMinutes:
		return s.weights.ShortReadBonus
	case minutes >= s.weights.LongReadMinutes:
		return -s.weights.LongReadPenalty
	default:
		return 0
	}
}

func (s *Scorer) categoryAffinity(category, topCategory string) float64 {
	if topCategory == "" || category != topCategory {
		return 0
	}
	return s.weights.CategoryBonus
}

func (s *Scorer) authorPresence(author string) float64 {
	if author == "" {
		return 0
	}
	return s.weights.AuthorBonus
}

func (s *Scorer) descriptionRichness(description string) float64 {
	if utf8.RuneCountInString(description) <= s.weights.DescriptionMinLength {
		return 0
	}
	return s.weights.DescriptionBonus
}
