package model

import (
	"github.com/stretchr/testify/assert"
	"testing"
	"time"
)

func TestArticle_Normalize(t *testing.T) {
	now := time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)

	a := Article{URL: "https://go.dev"}.Normalize(now)

	assert.Equal(t, now, a.SavedAt)
	assert.Equal(t, now, a.FetchedAt)
	assert.Equal(t, StatusUnread, a.Status)
	assert.Equal(t, DefaultCategory, a.Category)
	assert.NotNil(t, a.Tags)
	assert.False(t, a.IsRead())

	saved := now.Add(-time.Hour)
	a = Article{SavedAt: saved, Status: StatusRead, Category: "Science", Tags: []string{"dna"}}.Normalize(now)

	assert.Equal(t, saved, a.SavedAt)
	assert.Equal(t, saved, a.FetchedAt)
	assert.True(t, a.IsRead())
	assert.Equal(t, "Science", a.Category)
	assert.Equal(t, []string{"dna"}, a.Tags)
}

func TestNewStatistics(t *testing.T) {
	stats := NewStatistics(3, 1, 20, 5, "Technology")

	assert.Equal(t, 2, stats.UnreadCount)
	assert.Equal(t, 33.3, stats.ReadPercentage)
	assert.Equal(t, 6.7, stats.AverageReadingTime)
	assert.Equal(t, "Technology", stats.TopCategory)

	empty := NewStatistics(0, 0, 0, 0, "")
	assert.Zero(t, empty.ReadPercentage)
	assert.Zero(t, empty.AverageReadingTime)
	assert.Zero(t, empty.UnreadCount)
}

func TestDigest_Categories(t *testing.T) {
	d := Digest{Groups: []CategoryGroup{{Category: "Technology"}, {Category: "Science"}}}

	assert.Equal(t, []string{"Technology", "Science"}, d.Categories())
	assert.Empty(t, Digest{}.Categories())
}
