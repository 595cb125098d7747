package model

import (
	"github.com/google/uuid"
	"math"
	"time"
)

// Запись из RSS ленты
type Item struct {
	Title      string
	Categories []string
	Link       string
	// Дата публикации в источнике
	Date       time.Time
	Summary    string
	SourceName string
}

// Подписка на ленту, статьи из которой попадают в очередь на чтение
type Source struct {
	ID   int64
	Name string
	// Откуда забираем ленту
	FeedURL   string
	CreatedAt time.Time
}

type ArticleStatus string

const (
	StatusUnread ArticleStatus = "unread"
	StatusRead   ArticleStatus = "read"
)

const DefaultCategory = "Uncategorized"

// Сохраненная статья. URL уникален, необязательные поля пустые строки
type Article struct {
	ID            int64  `json:"id"`
	URL           string `json:"url"`
	Title         string `json:"title"`
	Content       string `json:"content,omitempty"`
	Author        string `json:"author,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
	Description   string `json:"description,omitempty"`
	// Оценка времени чтения в минутах
	ReadingTime int           `json:"reading_time"`
	Domain      string        `json:"domain"`
	FetchedAt   time.Time     `json:"fetched_at"`
	SavedAt     time.Time     `json:"saved_at"`
	Status      ArticleStatus `json:"status"`
	Category    string        `json:"category"`
	Tags        []string      `json:"tags,omitempty"`
	Notes       string        `json:"notes,omitempty"`
	ReadAt      *time.Time    `json:"read_at,omitempty"`
}

func (a Article) IsRead() bool {
	return a.Status == StatusRead
}

type EventType string

const (
	EventSaved EventType = "saved"
	EventRead  EventType = "read"
)

// Запись журнала событий, только на добавление.
// Title и URL подтягиваются из статьи и пустые, если статью удалили
type Event struct {
	ID        int64     `json:"id"`
	ArticleID int64     `json:"article_id"`
	Type      EventType `json:"event_type"`
	// Нулевое значение, если время события не удалось прочитать
	Timestamp time.Time `json:"timestamp"`
	Metadata  string    `json:"metadata,omitempty"`
	Title     string    `json:"title,omitempty"`
	URL       string    `json:"url,omitempty"`
}

type Statistics struct {
	TotalArticles      int     `json:"total_articles"`
	ReadCount          int     `json:"read_count"`
	UnreadCount        int     `json:"unread_count"`
	TopCategory        string  `json:"top_category,omitempty"`
	ReadPercentage     float64 `json:"read_percentage"`
	AverageReadingTime float64 `json:"average_reading_time"`
	TotalReadingTime   int     `json:"total_reading_time"`
	ReadReadingTime    int     `json:"read_reading_time"`
}

type CategoryCount struct {
	Category string `json:"category" db:"category"`
	Count    int    `json:"count" db:"count"`
}

type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
	Night     TimeOfDay = "night"
)

// Привычное время чтения, вычисленное по журналу событий
type ReadingPattern struct {
	PreferredHours []int `json:"preferred_hours"`
	// 0 понедельник, 6 воскресенье
	PreferredDays []int       `json:"preferred_days"`
	ReadingTimes  []TimeOfDay `json:"reading_times"`
	TotalReads    int         `json:"total_reads"`
	HasData       bool        `json:"has_data"`
}

type ScoredArticle struct {
	Article
	Score float64 `json:"score"`
}

type CategoryGroup struct {
	Category string          `json:"category"`
	Articles []ScoredArticle `json:"articles"`
}

type Digest struct {
	ID               uuid.UUID       `json:"id"`
	Items            []ScoredArticle `json:"items"`
	Groups           []CategoryGroup `json:"groups"`
	TotalReadingTime int             `json:"total_reading_time"`
	CreatedAt        time.Time       `json:"created_at"`
}

func (d Digest) Categories() []string {
	categories := make([]string, 0, len(d.Groups))
	for _, g := range d.Groups {
		categories = append(categories, g.Category)
	}
	return categories
}

type ScheduleEntry struct {
	DeliveryTime     time.Time `json:"delivery_time"`
	Hour             int       `json:"hour"`
	DayOfWeek        string    `json:"day_of_week"`
	RecommendedItems int       `json:"recommended_items"`
}

// Заполняет значения по умолчанию перед первым сохранением
func (a Article) Normalize(now time.Time) Article {
	if a.SavedAt.IsZero() {
		a.SavedAt = now
	}
	if a.FetchedAt.IsZero() {
		a.FetchedAt = a.SavedAt
	}
	if a.Status == "" {
		a.Status = StatusUnread
	}
	if a.Category == "" {
		a.Category = DefaultCategory
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	return a
}

// Собирает статистику из агрегатов. Проценты и среднее округляются до десятых
func NewStatistics(total, read, totalReadingTime, readReadingTime int, topCategory string) Statistics {
	stats := Statistics{
		TotalArticles:    total,
		ReadCount:        read,
		UnreadCount:      total - read,
		TopCategory:      topCategory,
		TotalReadingTime: totalReadingTime,
		ReadReadingTime:  readReadingTime,
	}

	if total > 0 {
		stats.ReadPercentage = roundTenth(float64(read) / float64(total) * 100)
		stats.AverageReadingTime = roundTenth(float64(totalReadingTime) / float64(total))
	}

	return stats
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
