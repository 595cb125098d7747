package scheduler

import "time"

// Веса слагаемых приоритета статьи
type Weights struct {
	// Статья, сохраненная сегодня, получает RecencyWindowDays баллов,
	// каждый день возраста отнимает один балл
	RecencyWindowDays int

	QuickReadMinutes int
	QuickReadBonus   float64
	ShortReadMinutes int
	ShortReadBonus   float64
	LongReadMinutes  int
	LongReadPenalty  float64

	CategoryBonus float64
	AuthorBonus   float64

	DescriptionMinLength int
	DescriptionBonus     float64
}

// Порог процента прочитанного и соответствующий размер дайджеста
type BatchTier struct {
	MinReadPercentage float64
	Size              int
}

type Config struct {
	// Если истории чтения нет
	DefaultHours []int
	// Сколько статей рекомендуем на одну доставку
	MaxItemsPerDelivery int

	EventWindow       int
	QueueFetchLimit   int
	SessionQueueLimit int

	Weights Weights

	// По убыванию MinReadPercentage
	BatchTiers       []BatchTier
	MinimumBatchSize int

	// В этой таймзоне считаем часы и дни недели
	Location *time.Location
}

func DefaultWeights() Weights {
	return Weights{
		RecencyWindowDays:    10,
		QuickReadMinutes:     3,
		QuickReadBonus:       5,
		ShortReadMinutes:     5,
		ShortReadBonus:       3,
		LongReadMinutes:      15,
		LongReadPenalty:      2,
		CategoryBonus:        5,
		AuthorBonus:          2,
		DescriptionMinLength: 100,
		DescriptionBonus:     2,
	}
}

func DefaultConfig() Config {
	return Config{
		DefaultHours:        []int{9, 12, 18, 21},
		MaxItemsPerDelivery: 5,
		EventWindow:         100,
		QueueFetchLimit:     50,
		SessionQueueLimit:   20,
		Weights:             DefaultWeights(),
		BatchTiers: []BatchTier{
			{MinReadPercentage: 80, Size: 7},
			{MinReadPercentage: 50, Size: 5},
			{MinReadPercentage: 20, Size: 3},
		},
		MinimumBatchSize: 2,
		Location:         time.Local,
	}
}

func (c Config) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

func (c Config) defaultHours() []int {
	if len(c.DefaultHours) == 0 {
		return DefaultConfig().DefaultHours
	}
	return append([]int(nil), c.DefaultHours...)
}
