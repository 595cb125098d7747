package main

import (
	"context"
	"errors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmoiron/sqlx"
	"github.com/kovalyov-valentin/read-later-bot/internal/api"
	"github.com/kovalyov-valentin/read-later-bot/internal/bot"
	"github.com/kovalyov-valentin/read-later-bot/internal/bot/middleware"
	"github.com/kovalyov-valentin/read-later-bot/internal/botkit"
	"github.com/kovalyov-valentin/read-later-bot/internal/classifier"
	"github.com/kovalyov-valentin/read-later-bot/internal/config"
	"github.com/kovalyov-valentin/read-later-bot/internal/fetcher"
	"github.com/kovalyov-valentin/read-later-bot/internal/ingest"
	"github.com/kovalyov-valentin/read-later-bot/internal/logging"
	"github.com/kovalyov-valentin/read-later-bot/internal/metrics"
	"github.com/kovalyov-valentin/read-later-bot/internal/notifier"
	"github.com/kovalyov-valentin/read-later-bot/internal/retention"
	"github.com/kovalyov-valentin/read-later-bot/internal/scheduler"
	"github.com/kovalyov-valentin/read-later-bot/internal/storage"
	"github.com/kovalyov-valentin/read-later-bot/internal/storage/memory"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

// Все, что нужно от хранилища статей разным компонентам
type articleStore interface {
	scheduler.Store
	ingest.Store
	api.Store
	bot.ArticleEditor
	bot.CategoryBrowser
	retention.Cleaner
}

type sourceStore interface {
	fetcher.SourceProvider
	bot.SourceStorage
	bot.SourceDeleter
}

type worker interface {
	Start(ctx context.Context) error
}

func main() {
	cfg := config.Get()

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Printf("failed to create logger: %v", err)
		return
	}
	defer func() { _ = logger.Sync() }()

	schedulerCfg, err := cfg.ToScheduler()
	if err != nil {
		logger.Error("invalid scheduler config", zap.Error(err))
		return
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		logger.Error("failed to create bot", zap.Error(err))
		return
	}

	var (
		articles articleStore
		sources  sourceStore
		prefs    notifier.State
	)
	switch cfg.StorageDriver {
	case "memory":
		store := memory.New()
		articles, sources, prefs = store, store, store
		logger.Warn("using in-memory storage, data will be lost on restart")
	default:
		db, err := sqlx.Connect("postgres", cfg.DatabaseDSN)
		if err != nil {
			logger.Error("failed to connect to database", zap.Error(err))
			return
		}
		defer db.Close()

		articles = storage.NewArticlePostgresStorage(db)
		sources = storage.NewSourcePostgresStorage(db)
		prefs = storage.NewPreferencePostgresStorage(db)
	}

	var (
		collector = metrics.NewCollector("read_later")
		cls       = classifier.NewOpenAIClassifier(
			cfg.OpenAIKey,
			cfg.OpenAIModel,
			classifier.NewKeywordClassifier(),
			collector,
			logger.Named("classifier"),
		)
		ingester = ingest.New(
			&http.Client{},
			articles,
			cls,
			ingest.Config{
				Timeout:          cfg.FetchTimeout,
				MaxContentLength: cfg.MaxContentLength,
			},
			collector,
			logger.Named("ingest"),
		)
		planner = scheduler.NewPlanner(articles, schedulerCfg, logger.Named("scheduler"))
		fetcher = fetcher.NewFetcher(
			ingester,
			sources,
			cfg.FetchInterval,
			cfg.FilterKeywords,
			logger.Named("fetcher"),
		)
		janitor   = retention.NewJanitor(articles, cfg.CleanupInterval, cfg.RetentionPeriod, logger.Named("retention"))
		apiServer = api.NewServer(cfg.HTTPAddr, planner, articles, ingester, collector, logger.Named("api"))
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	adminOnly := func(view botkit.ViewFunc) botkit.ViewFunc {
		return middleware.AdminOnly(cfg.TelegramChannelID, cfg.AdminIDs, view)
	}

	readLaterBot := botkit.New(botAPI, logger.Named("bot"))
	readLaterBot.RegisterCmdView("start", bot.ViewCmdStart())
	readLaterBot.RegisterCmdView("help", bot.ViewCmdHelp())
	readLaterBot.RegisterCmdView("save", bot.ViewCmdSave(ingester))
	readLaterBot.RegisterTextView(bot.ViewTextSave(ingester))
	readLaterBot.RegisterCmdView("list", bot.ViewCmdList(planner, articles))
	readLaterBot.RegisterCmdView("categories", bot.ViewCmdCategories(articles))
	readLaterBot.RegisterCmdView("search", bot.ViewCmdSearch(articles))
	readLaterBot.RegisterCmdView("read", bot.ViewCmdRead(articles, collector))
	readLaterBot.RegisterCmdView("category", bot.ViewCmdCategory(articles))
	readLaterBot.RegisterCmdView("delete", bot.ViewCmdDelete(articles))
	readLaterBot.RegisterCmdView("digest", bot.ViewCmdDigest(planner, collector))
	readLaterBot.RegisterCmdView("session", bot.ViewCmdSession(planner))
	readLaterBot.RegisterCmdView("schedule", bot.ViewCmdSchedule(planner))
	readLaterBot.RegisterCmdView("patterns", bot.ViewCmdPatterns(planner))
	readLaterBot.RegisterCmdView("stats", bot.ViewCmdStats(articles))
	readLaterBot.RegisterCmdView("listsources", bot.ViewCmdListSources(sources))
	readLaterBot.RegisterCmdView("addsource", adminOnly(bot.ViewCmdAddSource(sources)))
	readLaterBot.RegisterCmdView("deletesource", adminOnly(bot.ViewCmdDeleteSource(sources)))

	workers := map[string]worker{
		"fetcher":   fetcher,
		"retention": janitor,
		"api":       apiServer,
	}

	if cfg.TelegramChannelID != 0 {
		workers["notifier"] = notifier.New(
			planner,
			botAPI,
			cfg.TelegramChannelID,
			schedulerCfg.MaxItemsPerDelivery,
			collector,
			logger.Named("notifier"),
		).WithState(prefs)
	} else {
		logger.Info("telegram channel is not configured, scheduled digests are disabled")
	}

	for name, w := range workers {
		go func(name string, w worker) {
			if err := w.Start(ctx); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Error("worker failed", zap.String("worker", name), zap.Error(err))
					return
				}
			}

			logger.Info("worker stopped", zap.String("worker", name))
		}(name, w)
	}

	if err := readLaterBot.Run(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Error("failed to run bot", zap.Error(err))
			return
		}

		logger.Info("bot stopped")
	}
}
