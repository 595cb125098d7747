package classifier

import (
	"context"
	"errors"
	"fmt"
	"github.com/kovalyov-valentin/read-later-bot/internal/metrics"
	"github.com/kovalyov-valentin/read-later-bot/internal/model"
	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"strings"
	"time"
)

var ErrUnknownCategory = errors.New("unknown category")

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Просит модель выбрать одну из известных категорий.
// Любая ошибка или непонятный ответ уходят в запасной классификатор
type OpenAIClassifier struct {
	client   chatCompleter
	model    string
	enabled  bool
	breaker  *gobreaker.CircuitBreaker
	fallback Classifier
	metrics  *metrics.Collector
	logger   *zap.Logger
}

func NewOpenAIClassifier(
	apiKey string,
	modelName string,
	fallback Classifier,
	collector *metrics.Collector,
	logger *zap.Logger,
) *OpenAIClassifier {
	return newOpenAIClassifier(openai.NewClient(apiKey), apiKey != "", modelName, fallback, collector, logger)
}

func newOpenAIClassifier(
	client chatCompleter,
	enabled bool,
	modelName string,
	fallback Classifier,
	collector *metrics.Collector,
	logger *zap.Logger,
) *OpenAIClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if modelName == "" {
		modelName = openai.GPT3Dot5Turbo
	}

	logger.Info("openai classifier", zap.Bool("enabled", enabled), zap.String("model", modelName))

	return &OpenAIClassifier{
		client:  client,
		model:   modelName,
		enabled: enabled,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "openai-classifier",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     5 * time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Warn("circuit breaker state changed",
					zap.String("name", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
		fallback: fallback,
		metrics:  collector,
		logger:   logger,
	}
}

func (c *OpenAIClassifier) Classify(ctx context.Context, title, content, description string) (string, error) {
	if !c.enabled {
		c.metrics.Classified("keyword")
		return c.fallback.Classify(ctx, title, content, description)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.ask(ctx, title, content, description)
	})
	if err != nil {
		c.logger.Warn("openai classification failed, using keywords", zap.Error(err))
		c.metrics.Classified("fallback")
		return c.fallback.Classify(ctx, title, content, description)
	}

	c.metrics.Classified("openai")
	return result.(string), nil
}

func (c *OpenAIClassifier) ask(ctx context.Context, title, content, description string) (string, error) {
	prompt := fmt.Sprintf(
		"Classify the article into exactly one of these categories: %s. "+
			"Answer with the category name only, or %s if none fits.\n\nTitle: %s\nDescription: %s\n\n%s",
		strings.Join(Categories(), ", "),
		model.DefaultCategory,
		title,
		description,
		prefix(content, contentPrefixLen),
	)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   8,
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrUnknownCategory)
	}

	answer := strings.Trim(strings.TrimSpace(resp.Choices[0].Message.Content), ".\"'")
	for _, name := range append(Categories(), model.DefaultCategory) {
		if strings.EqualFold(answer, name) {
			return name, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, answer)
}
