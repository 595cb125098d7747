package memory

import (
	"context"
	"github.com/kovalyov-valentin/read-later-bot/internal/model"
	"github.com/kovalyov-valentin/read-later-bot/internal/storage"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync"
	"testing"
	"time"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time {
	return c.now
}

func newTestStorage() (*Storage, *clock) {
	c := &clock{now: time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)}
	return New().WithClock(c.Now), c
}

func testArticle(url string, minutes int, category string) model.Article {
	return model.Article{
		URL:         url,
		Title:       "Title of " + url,
		Content:     "Some content about " + category,
		ReadingTime: minutes,
		Domain:      "example.com",
		Category:    category,
	}
}

func TestStorage_SaveArticle_Idempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage()

	first, err := s.SaveArticle(ctx, testArticle("https://example.com/a", 5, "Technology"))
	require.NoError(t, err)

	second, err := s.SaveArticle(ctx, testArticle("https://example.com/a", 9, "Science"))
	require.NoError(t, err)

	assert.Equal(t, first, second)

	queue, err := s.UnreadQueue(ctx, 10)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, 5, queue[0].ReadingTime)

	events, err := s.RecentEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestStorage_SaveArticle_ConcurrentSameURL(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage()

	var (
		wg      sync.WaitGroup
		ids     = make([]int64, 20)
		created = make([]bool, 20)
	)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			id, ok, err := s.CreateArticle(ctx, testArticle("https://example.com/same", 3, ""))
			assert.NoError(t, err)
			ids[i], created[i] = id, ok
		}(i)
	}
	wg.Wait()

	assert.Len(t, lo.Uniq(ids), 1)
	assert.Equal(t, 1, lo.Count(created, true))

	stats, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalArticles)
}

func TestStorage_SaveArticle_Defaults(t *testing.T) {
	ctx := context.Background()
	s, c := newTestStorage()

	id, err := s.SaveArticle(ctx, testArticle("https://example.com/a", 5, ""))
	require.NoError(t, err)

	article, err := s.ArticleByID(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, model.StatusUnread, article.Status)
	assert.Equal(t, model.DefaultCategory, article.Category)
	assert.Equal(t, c.now, article.SavedAt)
	assert.Equal(t, c.now, article.FetchedAt)
	assert.Nil(t, article.ReadAt)
}

func TestStorage_ArticleLookup(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage()

	id, err := s.SaveArticle(ctx, testArticle("https://example.com/a", 5, "Technology"))
	require.NoError(t, err)

	article, err := s.ArticleByURL(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, id, article.ID)

	_, err = s.ArticleByURL(ctx, "https://example.com/missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.ArticleByID(ctx, 42)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStorage_MarkRead(t *testing.T) {
	ctx := context.Background()
	s, c := newTestStorage()

	id, err := s.SaveArticle(ctx, testArticle("https://example.com/a", 5, "Technology"))
	require.NoError(t, err)

	ok, err := s.MarkRead(ctx, 404)
	require.NoError(t, err)
	assert.False(t, ok)

	c.now = c.now.Add(2 * time.Hour)

	ok, err = s.MarkRead(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	article, err := s.ArticleByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, article.IsRead())
	require.NotNil(t, article.ReadAt)
	assert.Equal(t, c.now, *article.ReadAt)

	ok, err = s.MarkRead(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	found, changed, err := s.MarkReadChanged(ctx, id)
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, changed)

	events, err := s.RecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.EventRead, events[0].Type)
	assert.Equal(t, c.now, events[0].Timestamp)
	assert.Equal(t, "https://example.com/a", events[0].URL)
	assert.Equal(t, model.EventSaved, events[1].Type)

	queue, err := s.UnreadQueue(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, queue)
}

func TestStorage_UnreadQueue_Order(t *testing.T) {
	ctx := context.Background()
	s, c := newTestStorage()

	for _, url := range []string{"https://example.com/1", "https://example.com/2", "https://example.com/3"} {
		_, err := s.SaveArticle(ctx, testArticle(url, 5, ""))
		require.NoError(t, err)
		c.now = c.now.Add(time.Minute)
	}

	queue, err := s.UnreadQueue(ctx, 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://example.com/3", "https://example.com/2"}, lo.Map(queue, func(a model.Article, _ int) string {
		return a.URL
	}))

	queue, err = s.UnreadQueue(ctx, 0)
	require.NoError(t, err)
	assert.NotNil(t, queue)
	assert.Empty(t, queue)
}

func TestStorage_Statistics(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage()

	stats, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Statistics{}, stats)

	articles := []model.Article{
		testArticle("https://example.com/1", 5, "Technology"),
		testArticle("https://example.com/2", 10, "Technology"),
		testArticle("https://example.com/3", 3, "Science"),
		testArticle("https://example.com/4", 7, "Science"),
	}
	for i, a := range articles {
		id, err := s.SaveArticle(ctx, a)
		require.NoError(t, err)

		if i%2 == 0 {
			_, err := s.MarkRead(ctx, id)
			require.NoError(t, err)
		}
	}

	stats, err = s.Statistics(ctx)
	require.NoError(t, err)

	assert.Equal(t, model.Statistics{
		TotalArticles:      4,
		ReadCount:          2,
		UnreadCount:        2,
		TopCategory:        "Science",
		ReadPercentage:     50,
		AverageReadingTime: 6.3,
		TotalReadingTime:   25,
		ReadReadingTime:    8,
	}, stats)
}

func TestStorage_CategoryManagement(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage()

	id, err := s.SaveArticle(ctx, testArticle("https://example.com/1", 5, "Technology"))
	require.NoError(t, err)
	_, err = s.SaveArticle(ctx, testArticle("https://example.com/2", 5, "Science"))
	require.NoError(t, err)
	_, err = s.SaveArticle(ctx, testArticle("https://example.com/3", 5, "Science"))
	require.NoError(t, err)

	counts, err := s.CategoryCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.CategoryCount{
		{Category: "Science", Count: 2},
		{Category: "Technology", Count: 1},
	}, counts)

	ok, err := s.UpdateCategory(ctx, id, "Business")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.UpdateCategory(ctx, 404, "Business")
	require.NoError(t, err)
	assert.False(t, ok)

	business, err := s.ArticlesByCategory(ctx, "Business", 10)
	require.NoError(t, err)
	require.Len(t, business, 1)
	assert.Equal(t, id, business[0].ID)
}

func TestStorage_Search(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage()

	a := testArticle("https://example.com/go", 5, "Technology")
	a.Title = "Understanding Go Channels"
	_, err := s.SaveArticle(ctx, a)
	require.NoError(t, err)

	b := testArticle("https://example.com/bread", 5, "Lifestyle")
	b.Title = "Baking bread"
	b.Content = "Flour, water, patience"
	_, err = s.SaveArticle(ctx, b)
	require.NoError(t, err)

	found, err := s.Search(ctx, "CHANNELS", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "https://example.com/go", found[0].URL)

	found, err = s.Search(ctx, "patience", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "https://example.com/bread", found[0].URL)
}

func TestStorage_DeleteArticle_KeepsEvents(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage()

	id, err := s.SaveArticle(ctx, testArticle("https://example.com/a", 5, "Technology"))
	require.NoError(t, err)
	_, err = s.MarkRead(ctx, id)
	require.NoError(t, err)

	ok, err := s.DeleteArticle(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.DeleteArticle(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	events, err := s.RecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, id, events[0].ArticleID)
	assert.Empty(t, events[0].Title)
	assert.Empty(t, events[0].URL)

	// URL снова свободен
	newID, err := s.SaveArticle(ctx, testArticle("https://example.com/a", 5, "Technology"))
	require.NoError(t, err)
	assert.NotEqual(t, id, newID)
}

func TestStorage_Cleanup(t *testing.T) {
	ctx := context.Background()
	s, c := newTestStorage()

	oldRead, err := s.SaveArticle(ctx, testArticle("https://example.com/old-read", 5, ""))
	require.NoError(t, err)
	_, err = s.MarkRead(ctx, oldRead)
	require.NoError(t, err)

	oldUnread, err := s.SaveArticle(ctx, testArticle("https://example.com/old-unread", 5, ""))
	require.NoError(t, err)

	c.now = c.now.AddDate(0, 0, 100)

	freshRead, err := s.SaveArticle(ctx, testArticle("https://example.com/fresh-read", 5, ""))
	require.NoError(t, err)
	_, err = s.MarkRead(ctx, freshRead)
	require.NoError(t, err)

	deleted, err := s.Cleanup(ctx, 90*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = s.ArticleByID(ctx, oldRead)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.ArticleByID(ctx, oldUnread)
	assert.NoError(t, err)

	_, err = s.ArticleByID(ctx, freshRead)
	assert.NoError(t, err)

	events, err := s.RecentEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestStorage_Sources(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage()

	id, err := s.Add(ctx, model.Source{Name: "Go blog", FeedURL: "https://go.dev/blog/feed.atom"})
	require.NoError(t, err)

	source, err := s.SourceByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Go blog", source.Name)
	assert.False(t, source.CreatedAt.IsZero())

	ok, err := s.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	sources, err := s.Sources(ctx)
	require.NoError(t, err)
	assert.Empty(t, sources)

	_, err = s.SourceByID(ctx, id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStorage_Preferences(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage()

	value, err := s.Preference(ctx, "digest.size", "5")
	require.NoError(t, err)
	assert.Equal(t, "5", value)

	require.NoError(t, s.SetPreference(ctx, "digest.size", "7"))
	require.NoError(t, s.SetPreference(ctx, "digest.size", "8"))

	value, err = s.Preference(ctx, "digest.size", "5")
	require.NoError(t, err)
	assert.Equal(t, "8", value)
}
