package storage

import (
	"context"
	"github.com/jmoiron/sqlx"
	"github.com/kovalyov-valentin/read-later-bot/internal/model"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"testing"
	"time"
)

// Интеграционные тесты поднимают Postgres в контейнере.
// Запускаются только с RLB_INTEGRATION=1
func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	if os.Getenv("RLB_INTEGRATION") != "1" {
		t.Skip("set RLB_INTEGRATION=1 to run postgres integration tests")
	}

	ctx := context.Background()

	_, file, _, _ := runtime.Caller(0)
	migrations, err := filepath.Glob(filepath.Join(filepath.Dir(file), "..", "..", "db", "migrations", "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	sort.Strings(migrations)

	container, err := postgres.Run(ctx,
		"postgres:17.5",
		postgres.WithDatabase("read_later_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(migrations...),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestArticlePostgresStorage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	now := time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)
	articles := NewArticlePostgresStorage(db)
	articles.now = func() time.Time { return now }

	article := model.Article{
		URL:         "https://example.com/go",
		Title:       "Understanding Go_Channels",
		Content:     "Channels are typed conduits 100% of the time",
		ReadingTime: 4,
		Domain:      "example.com",
		Category:    "Technology",
		Tags:        []string{"go", "channels"},
	}

	t.Run("save is idempotent", func(t *testing.T) {
		first, err := articles.SaveArticle(ctx, article)
		require.NoError(t, err)

		second, err := articles.SaveArticle(ctx, article)
		require.NoError(t, err)

		assert.Equal(t, first, second)

		stored, err := articles.ArticleByURL(ctx, article.URL)
		require.NoError(t, err)
		assert.Equal(t, []string{"go", "channels"}, stored.Tags)
		assert.Equal(t, model.StatusUnread, stored.Status)
		assert.True(t, now.Equal(stored.SavedAt))

		events, err := articles.RecentEvents(ctx, 10)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, model.EventSaved, events[0].Type)
		assert.Equal(t, article.Title, events[0].Title)
	})

	t.Run("concurrent saves of one url", func(t *testing.T) {
		var (
			wg      sync.WaitGroup
			ids     = make([]int64, 10)
			created = make([]bool, 10)
		)
		for i := range ids {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()

				id, ok, err := articles.CreateArticle(ctx, model.Article{URL: "https://example.com/race", Title: "Race", ReadingTime: 1})
				assert.NoError(t, err)
				ids[i], created[i] = id, ok
			}(i)
		}
		wg.Wait()

		inserted := 0
		for i, id := range ids {
			assert.Equal(t, ids[0], id)
			if created[i] {
				inserted++
			}
		}
		assert.Equal(t, 1, inserted)
	})

	t.Run("search escapes wildcards", func(t *testing.T) {
		found, err := articles.Search(ctx, "go_channels", 10)
		require.NoError(t, err)
		require.Len(t, found, 1)

		found, err = articles.Search(ctx, "100%", 10)
		require.NoError(t, err)
		require.Len(t, found, 1)

		found, err = articles.Search(ctx, "go%channels", 10)
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("mark read", func(t *testing.T) {
		stored, err := articles.ArticleByURL(ctx, article.URL)
		require.NoError(t, err)

		ok, err := articles.MarkRead(ctx, stored.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		found, changed, err := articles.MarkReadChanged(ctx, stored.ID)
		require.NoError(t, err)
		assert.True(t, found)
		assert.False(t, changed)

		ok, err = articles.MarkRead(ctx, 1_000_000)
		require.NoError(t, err)
		assert.False(t, ok)

		events, err := articles.RecentEvents(ctx, 100)
		require.NoError(t, err)

		var reads int
		for _, e := range events {
			if e.Type == model.EventRead {
				reads++
			}
		}
		assert.Equal(t, 1, reads)

		stats, err := articles.Statistics(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.TotalArticles)
		assert.Equal(t, 1, stats.ReadCount)
		assert.Equal(t, 50.0, stats.ReadPercentage)
		assert.Equal(t, 2.5, stats.AverageReadingTime)
		assert.Equal(t, "Technology", stats.TopCategory)
	})

	t.Run("delete keeps events", func(t *testing.T) {
		stored, err := articles.ArticleByURL(ctx, "https://example.com/race")
		require.NoError(t, err)

		ok, err := articles.DeleteArticle(ctx, stored.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		events, err := articles.RecentEvents(ctx, 100)
		require.NoError(t, err)

		var orphan bool
		for _, e := range events {
			if e.ArticleID == stored.ID {
				orphan = true
				assert.Empty(t, e.URL)
			}
		}
		assert.True(t, orphan)
	})

	t.Run("cleanup", func(t *testing.T) {
		now = now.AddDate(0, 0, 100)

		deleted, err := articles.Cleanup(ctx, 90*24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		_, err = articles.ArticleByURL(ctx, article.URL)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSourcePostgresStorage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	sources := NewSourcePostgresStorage(db)

	id, err := sources.Add(ctx, model.Source{Name: "Go blog", FeedURL: "https://go.dev/blog/feed.atom"})
	require.NoError(t, err)

	source, err := sources.SourceByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Go blog", source.Name)

	list, err := sources.Sources(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	ok, err := sources.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = sources.SourceByID(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPreferencePostgresStorage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	prefs := NewPreferencePostgresStorage(db)

	value, err := prefs.Preference(ctx, "digest.size", "5")
	require.NoError(t, err)
	assert.Equal(t, "5", value)

	require.NoError(t, prefs.SetPreference(ctx, "digest.size", "7"))
	require.NoError(t, prefs.SetPreference(ctx, "digest.size", "8"))

	value, err = prefs.Preference(ctx, "digest.size", "5")
	require.NoError(t, err)
	assert.Equal(t, "8", value)
}
