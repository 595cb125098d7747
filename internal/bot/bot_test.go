package bot

import (
	"context"
	"github.com/kovalyov-valentin/read-later-bot/internal/botkit"
	"github.com/kovalyov-valentin/read-later-bot/internal/botkit/botkittest"
	"github.com/kovalyov-valentin/read-later-bot/internal/ingest"
	"github.com/kovalyov-valentin/read-later-bot/internal/metrics"
	"github.com/kovalyov-valentin/read-later-bot/internal/model"
	"github.com/kovalyov-valentin/read-later-bot/internal/scheduler"
	"github.com/kovalyov-valentin/read-later-bot/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const chatID = 100

type env struct {
	server  *botkittest.Server
	store   *memory.Storage
	planner *scheduler.Planner
	run     func(view botkit.ViewFunc, text string) string
}

func newEnv(t *testing.T) env {
	t.Helper()

	server, api := botkittest.New(t)

	cfg := scheduler.DefaultConfig()
	cfg.Location = time.UTC

	store := memory.New()
	planner := scheduler.NewPlanner(store, cfg, zap.NewNop())

	return env{
		server:  server,
		store:   store,
		planner: planner,
		run: func(view botkit.ViewFunc, text string) string {
			t.Helper()

			update := botkittest.CommandUpdate(chatID, 1, text)
			if text == "" || text[0] != '/' {
				update = botkittest.TextUpdate(chatID, 1, text)
			}

			require.NoError(t, view(context.Background(), api, update))

			messages := server.Messages()
			require.NotEmpty(t, messages)

			last := messages[len(messages)-1]
			assert.Equal(t, int64(chatID), last.ChatID)
			assert.Equal(t, "MarkdownV2", last.ParseMode)

			return last.Text
		},
	}
}

func (e env) save(t *testing.T, url, title, category string, minutes int) int64 {
	t.Helper()

	id, err := e.store.SaveArticle(context.Background(), model.Article{
		URL:         url,
		Title:       title,
		Category:    category,
		ReadingTime: minutes,
	})
	require.NoError(t, err)

	return id
}

type fakeIngester struct {
	results map[string]ingest.Result
	errs    map[string]error
}

func (f fakeIngester) Ingest(_ context.Context, url string) (ingest.Result, error) {
	if err, ok := f.errs[url]; ok {
		return ingest.Result{}, err
	}
	return f.results[url], nil
}

func TestViewCmdStart(t *testing.T) {
	e := newEnv(t)

	assert.Contains(t, e.run(ViewCmdStart(), "/start"), "*Команды*")
	assert.Contains(t, e.run(ViewCmdHelp(), "/help"), "/session \\[минуты\\]")
}

func TestViewSave(t *testing.T) {
	e := newEnv(t)

	ingester := fakeIngester{
		results: map[string]ingest.Result{
			"https://go.dev/blog/new": {
				Article: model.Article{ID: 3, URL: "https://go.dev/blog/new", Title: "Go 1.27", Category: "Technology", ReadingTime: 4},
				Created: true,
			},
			"https://go.dev/blog/old": {
				Article: model.Article{ID: 1, URL: "https://go.dev/blog/old", Title: "Old news", Category: "Technology", ReadingTime: 2},
			},
		},
		errs: map[string]error{
			"https://example.com/data.json": ingest.ErrNotHTML,
		},
	}

	text := e.run(ViewTextSave(ingester), "Почитай https://go.dev/blog/new и https://go.dev/blog/old")
	assert.Contains(t, text, "✅ Сохранено: [Go 1\\.27](https://go.dev/blog/new)")
	assert.Contains(t, text, "4 мин\\.")
	assert.Contains(t, text, "📌 Уже в списке: [Old news](https://go.dev/blog/old)")

	text = e.run(ViewCmdSave(ingester), "/save https://example.com/data.json")
	assert.Contains(t, text, "❌ https://example\\.com/data\\.json: по ссылке не HTML страница")

	assert.Contains(t, e.run(ViewTextSave(ingester), "привет"), "Пришлите ссылку")
	assert.Contains(t, e.run(ViewCmdSave(ingester), "/save"), "Укажите ссылку")
}

func TestViewCmdList(t *testing.T) {
	e := newEnv(t)

	assert.Contains(t, e.run(ViewCmdList(e.planner, e.store), "/list"), "Очередь пуста")

	e.save(t, "https://a.example/1", "Channels", "Technology", 5)
	e.save(t, "https://a.example/2", "Black holes", "Science", 12)

	text := e.run(ViewCmdList(e.planner, e.store), "/list")
	assert.Contains(t, text, "[Channels](https://a.example/1)")
	assert.Contains(t, text, "[Black holes](https://a.example/2)")

	text = e.run(ViewCmdList(e.planner, e.store), "/list Science")
	assert.Contains(t, text, "Black holes")
	assert.NotContains(t, text, "Channels")

	assert.Contains(t, e.run(ViewCmdList(e.planner, e.store), "/list Sports"), "ничего нет")

	text = e.run(ViewCmdCategories(e.store), "/categories")
	assert.Contains(t, text, "• Science: 1")
	assert.Contains(t, text, "• Technology: 1")
}

func TestViewCmdSearch(t *testing.T) {
	e := newEnv(t)
	e.save(t, "https://a.example/1", "Channels in Go", "Technology", 5)

	assert.Contains(t, e.run(ViewCmdSearch(e.store), "/search channels"), "Найдено: 1")
	assert.Contains(t, e.run(ViewCmdSearch(e.store), "/search rust"), "ничего не нашлось")
	assert.Contains(t, e.run(ViewCmdSearch(e.store), "/search"), "Укажите, что искать")
}

func TestViewCmdEditArticle(t *testing.T) {
	e := newEnv(t)
	collector := metrics.NewCollector("test")

	id := e.save(t, "https://a.example/1", "Channels", "Technology", 5)

	assert.Contains(t, e.run(ViewCmdRead(e.store, collector), "/read abc"), "Укажите ID")
	assert.Contains(t, e.run(ViewCmdRead(e.store, collector), "/read 999"), "не найдена")
	assert.Contains(t, e.run(ViewCmdRead(e.store, collector), "/read 1"), "прочитана")
	assert.Contains(t, e.run(ViewCmdRead(e.store, collector), "/read 1"), "прочитана")
	assert.Contains(t, scrapeMetrics(t, collector), "test_articles_read_total 1")

	article, err := e.store.ArticleByID(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, article.IsRead())

	assert.Contains(t, e.run(ViewCmdCategory(e.store), "/category 1"), "Укажите ID и категорию")
	assert.Contains(t, e.run(ViewCmdCategory(e.store), "/category 1 Science"), "в категории *Science*")

	article, err = e.store.ArticleByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Science", article.Category)

	assert.Contains(t, e.run(ViewCmdDelete(e.store), "/delete 1"), "удалена")
	assert.Contains(t, e.run(ViewCmdDelete(e.store), "/delete 1"), "не найдена")
}

func TestViewCmdDigest(t *testing.T) {
	e := newEnv(t)
	collector := metrics.NewCollector("test")

	assert.Contains(t, e.run(ViewCmdDigest(e.planner, collector), "/digest"), "Очередь пуста")

	e.save(t, "https://a.example/1", "Channels", "Technology", 5)
	e.save(t, "https://a.example/2", "Goroutines", "Technology", 8)
	e.save(t, "https://a.example/3", "Black holes", "Science", 12)

	text := e.run(ViewCmdDigest(e.planner, collector), "/digest 3")
	assert.Contains(t, text, "*Technology*")
	assert.Contains(t, text, "*Science*")
	assert.Contains(t, text, "3 статей, примерно 25 мин\\.")

	assert.Contains(t, e.run(ViewCmdDigest(e.planner, collector), "/digest 100"), "от 1 до 20")
}

func TestViewCmdSession(t *testing.T) {
	e := newEnv(t)

	assert.Contains(t, e.run(ViewCmdSession(e.planner), "/session"), "ничего из очереди не успеть")

	e.save(t, "https://a.example/1", "Channels", "Technology", 5)
	e.save(t, "https://a.example/2", "Long read", "Science", 40)

	text := e.run(ViewCmdSession(e.planner), "/session 10")
	assert.Contains(t, text, "Channels")
	assert.NotContains(t, text, "Long read")
	assert.Contains(t, text, "На 10 мин\\.: 1 статей")

	assert.Contains(t, e.run(ViewCmdSession(e.planner), "/session -5"), "Укажите количество минут")
}

func TestViewCmdScheduleAndPatterns(t *testing.T) {
	e := newEnv(t)

	text := e.run(ViewCmdSchedule(e.planner), "/schedule 2")
	assert.Contains(t, text, "Следующий дайджест")
	assert.Contains(t, text, "до 5 статей")

	assert.Contains(t, e.run(ViewCmdSchedule(e.planner), "/schedule 30"), "от 1 до 14")

	text = e.run(ViewCmdPatterns(e.planner), "/patterns")
	assert.Contains(t, text, "Пока мало данных")
	assert.Contains(t, text, "09:00, 12:00, 18:00, 21:00")
}

func TestViewCmdStats(t *testing.T) {
	e := newEnv(t)

	assert.Contains(t, e.run(ViewCmdStats(e.store), "/stats"), "ничего не сохранили")

	e.save(t, "https://a.example/1", "Channels", "Technology", 5)
	e.save(t, "https://a.example/2", "Black holes", "Science", 15)

	_, err := e.store.MarkRead(context.Background(), 1)
	require.NoError(t, err)

	text := e.run(ViewCmdStats(e.store), "/stats")
	assert.Contains(t, text, "Всего статей: 2")
	assert.Contains(t, text, "Прочитано: 1 \\(50\\.0%\\)")
	assert.Contains(t, text, "Среднее время чтения: 10\\.0 мин\\.")
	assert.Contains(t, text, "Чаще всего читаете: *Science*")
}

func TestViewCmdSources(t *testing.T) {
	e := newEnv(t)

	assert.Contains(t, e.run(ViewCmdListSources(e.store), "/listsources"), "Подписок пока нет")

	assert.Contains(t, e.run(ViewCmdAddSource(e.store), "/addsource Go blog"), "Формат: /addsource \\{")
	assert.Contains(t, e.run(ViewCmdAddSource(e.store), `/addsource {"name": "Go blog", "url": "not a url"}`), "Нужны название")

	text := e.run(ViewCmdAddSource(e.store), `/addsource {"name": "Go blog", "url": "https://go.dev/blog/feed.atom"}`)
	assert.Contains(t, text, "Источник *Go blog* добавлен с ID: `1`")

	text = e.run(ViewCmdListSources(e.store), "/listsources")
	assert.Contains(t, text, "всего 1")
	assert.Contains(t, text, "https://go\\.dev/blog/feed\\.atom")

	assert.Contains(t, e.run(ViewCmdDeleteSource(e.store), "/deletesource 1"), "удален")
	assert.Contains(t, e.run(ViewCmdDeleteSource(e.store), "/deletesource 1"), "не найден")
}

func scrapeMetrics(t *testing.T, collector *metrics.Collector) string {
	t.Helper()

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	return rec.Body.String()
}
