package notifier

import (
	"context"
	"fmt"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kovalyov-valentin/read-later-bot/internal/bot"
	"github.com/kovalyov-valentin/read-later-bot/internal/metrics"
	"github.com/kovalyov-valentin/read-later-bot/internal/model"
	"go.uber.org/zap"
	"time"
)

type DigestPlanner interface {
	NextDeliveryTime(ctx context.Context, now time.Time) (time.Time, error)
	OptimalBatchSize(ctx context.Context) (int, error)
	CreateDigest(ctx context.Context, maxItems int) (model.Digest, error)
}

type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Хранилище настроек, в нем переживает рестарт последний отправленный слот
type State interface {
	Preference(ctx context.Context, key, def string) (string, error)
	SetPreference(ctx context.Context, key, value string) error
}

const lastDeliveryKey = "notifier.last_delivery"

// Ждет ближайшего часа доставки и отправляет дайджест в канал
type Notifier struct {
	planner DigestPlanner
	sender  Sender
	// Куда отправлять дайджест
	channelID int64
	// Верхняя граница размера дайджеста
	maxItems int
	// Пауза перед повтором, если не удалось посчитать время доставки
	retryInterval time.Duration

	state   State
	metrics *metrics.Collector
	logger  *zap.Logger
	now     func() time.Time
	after   func(d time.Duration) <-chan time.Time
}

func New(
	planner DigestPlanner,
	sender Sender,
	channelID int64,
	maxItems int,
	collector *metrics.Collector,
	logger *zap.Logger,
) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Notifier{
		planner:       planner,
		sender:        sender,
		channelID:     channelID,
		maxItems:      maxItems,
		retryInterval: time.Minute,
		metrics:       collector,
		logger:        logger,
		now:           time.Now,
		after:         time.After,
	}
}

func (n *Notifier) WithState(state State) *Notifier {
	n.state = state
	return n
}

func (n *Notifier) Start(ctx context.Context) error {
	// Последний слот, в который уже отправляли
	delivered := n.loadDelivered(ctx)

	for {
		wait := n.retryInterval

		next, err := n.nextSlot(ctx, delivered)
		if err != nil {
			n.logger.Error("failed to compute next delivery time", zap.Error(err))
		} else {
			wait = next.Sub(n.now())
			n.logger.Info("next digest scheduled", zap.Time("at", next), zap.Duration("in", wait))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-n.after(wait):
		}

		if err != nil {
			continue
		}

		delivered = next
		n.saveDelivered(ctx, delivered)

		// Ошибка отправки не останавливает воркер, попробуем в следующий раз
		if err := n.SendDigest(ctx); err != nil {
			n.logger.Error("failed to send digest", zap.Error(err))
		}
	}
}

// Таймер может сработать чуть раньше слота, тогда от now снова получится тот же слот.
// Уже обработанный слот пропускаем и считаем следующий от него
func (n *Notifier) nextSlot(ctx context.Context, delivered time.Time) (time.Time, error) {
	next, err := n.planner.NextDeliveryTime(ctx, n.now())
	if err != nil {
		return time.Time{}, err
	}

	if !delivered.IsZero() && !next.After(delivered) {
		return n.planner.NextDeliveryTime(ctx, delivered)
	}

	return next, nil
}

func (n *Notifier) loadDelivered(ctx context.Context) time.Time {
	if n.state == nil {
		return time.Time{}
	}

	raw, err := n.state.Preference(ctx, lastDeliveryKey, "")
	if err != nil {
		n.logger.Warn("failed to load last delivery time", zap.Error(err))
		return time.Time{}
	}
	if raw == "" {
		return time.Time{}
	}

	delivered, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		n.logger.Warn("invalid last delivery time", zap.String("value", raw), zap.Error(err))
		return time.Time{}
	}

	return delivered
}

func (n *Notifier) saveDelivered(ctx context.Context, delivered time.Time) {
	if n.state == nil {
		return
	}

	if err := n.state.SetPreference(ctx, lastDeliveryKey, delivered.UTC().Format(time.RFC3339)); err != nil {
		n.logger.Warn("failed to save last delivery time", zap.Error(err))
	}
}

// Собирает дайджест и публикует его. Пустую очередь не отправляем
func (n *Notifier) SendDigest(ctx context.Context) error {
	size, err := n.planner.OptimalBatchSize(ctx)
	if err != nil {
		return fmt.Errorf("optimal batch size: %w", err)
	}
	if n.maxItems > 0 && size > n.maxItems {
		size = n.maxItems
	}

	digest, err := n.planner.CreateDigest(ctx, size)
	if err != nil {
		return fmt.Errorf("create digest: %w", err)
	}
	n.metrics.DigestBuilt()

	if len(digest.Items) == 0 {
		n.logger.Info("reading queue is empty, digest skipped")
		return nil
	}

	msg := tgbotapi.NewMessage(n.channelID, bot.FormatDigest(digest))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true

	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("send digest: %w", err)
	}
	n.metrics.DigestDelivered()

	n.logger.Info("digest delivered",
		zap.String("digest_id", digest.ID.String()),
		zap.Int("items", len(digest.Items)),
		zap.Int("total_reading_time", digest.TotalReadingTime),
	)

	return nil
}
