package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-playground/validator/v10"
	"github.com/go-shiori/go-readability"
	"github.com/kovalyov-valentin/read-later-bot/internal/classifier"
	"github.com/kovalyov-valentin/read-later-bot/internal/metrics"
	"github.com/kovalyov-valentin/read-later-bot/internal/model"
	"github.com/kovalyov-valentin/read-later-bot/internal/storage"
	"go.uber.org/zap"
	"io"
	"math"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	ErrInvalidURL          = errors.New("invalid url")
	ErrFetch               = errors.New("fetch failed")
	ErrNotHTML             = errors.New("content is not html")
	ErrInsufficientContent = errors.New("insufficient content")
)

const (
	wordsPerMinute     = 225
	minContentLength   = 100
	maxTitleLength     = 200
	maxBodySize        = 5 << 20
	keywordsPerArticle = 5

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

type Store interface {
	ArticleByURL(ctx context.Context, url string) (*model.Article, error)
	ArticleByID(ctx context.Context, id int64) (*model.Article, error)
	CreateArticle(ctx context.Context, article model.Article) (int64, bool, error)
}

type Config struct {
	Timeout          time.Duration
	UserAgent        string
	MaxContentLength int
}

type Result struct {
	Article model.Article
	// false, если статья с таким URL уже была сохранена
	Created bool
}

// Загружает страницу по ссылке, вытаскивает из нее статью, классифицирует и сохраняет
type Ingester struct {
	client     *http.Client
	store      Store
	classifier classifier.Classifier
	validate   *validator.Validate
	cfg        Config
	metrics    *metrics.Collector
	logger     *zap.Logger
	now        func() time.Time
}

func New(
	client *http.Client,
	store Store,
	cls classifier.Classifier,
	cfg Config,
	collector *metrics.Collector,
	logger *zap.Logger,
) *Ingester {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.MaxContentLength <= 0 {
		cfg.MaxContentLength = 50000
	}

	return &Ingester{
		client:     client,
		store:      store,
		classifier: cls,
		validate:   validator.New(),
		cfg:        cfg,
		metrics:    collector,
		logger:     logger,
		now:        time.Now,
	}
}

type ingestRequest struct {
	URL string `validate:"required,url"`
}

func (i *Ingester) Ingest(ctx context.Context, rawURL string) (Result, error) {
	result, err := i.ingest(ctx, strings.TrimSpace(rawURL))
	if err != nil {
		i.metrics.IngestFailed(failureReason(err))
		i.logger.Warn("failed to ingest article", zap.String("url", rawURL), zap.Error(err))
		return Result{}, err
	}

	if result.Created {
		i.metrics.ArticleSaved()
		i.logger.Info("article saved",
			zap.Int64("id", result.Article.ID),
			zap.String("title", result.Article.Title),
			zap.Int("reading_time", result.Article.ReadingTime),
			zap.String("category", result.Article.Category),
		)
	}

	return result, nil
}

func (i *Ingester) ingest(ctx context.Context, rawURL string) (Result, error) {
	pageURL, err := i.parseURL(rawURL)
	if err != nil {
		return Result{}, err
	}

	existing, err := i.store.ArticleByURL(ctx, pageURL.String())
	switch {
	case err == nil:
		return Result{Article: *existing}, nil
	case !errors.Is(err, storage.ErrNotFound):
		return Result{}, fmt.Errorf("lookup article: %w", err)
	}

	body, err := i.fetch(ctx, pageURL)
	if err != nil {
		return Result{}, err
	}

	article, err := i.extract(pageURL, body)
	if err != nil {
		return Result{}, err
	}

	category, err := i.classifier.Classify(ctx, article.Title, article.Content, article.Description)
	if err != nil {
		i.logger.Warn("failed to classify article", zap.String("url", article.URL), zap.Error(err))
		category = model.DefaultCategory
	}
	article.Category = category
	article.Tags = classifier.Keywords(article.Title+" "+article.Content, keywordsPerArticle)

	id, created, err := i.store.CreateArticle(ctx, article)
	if err != nil {
		return Result{}, fmt.Errorf("save article: %w", err)
	}

	if !created {
		// Тот же URL успели сохранить параллельно, отдаем сохраненную версию
		stored, err := i.store.ArticleByID(ctx, id)
		if err != nil {
			return Result{}, fmt.Errorf("load stored article: %w", err)
		}
		return Result{Article: *stored}, nil
	}
	article.ID = id

	return Result{Article: article, Created: true}, nil
}

func (i *Ingester) parseURL(rawURL string) (*url.URL, error) {
	if err := i.validate.Struct(ingestRequest{URL: rawURL}); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: only http and https links are supported", ErrInvalidURL)
	}

	return u, nil
}

func (i *Ingester) fetch(ctx context.Context, pageURL *url.URL) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, i.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrFetch, err)
	}

	// Некоторые сайты не отдают страницу без заголовков браузера
	req.Header.Set("User-Agent", i.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("DNT", "1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %s", ErrFetch, pageURL, resp.Status)
	}

	if contentType := resp.Header.Get("Content-Type"); !strings.Contains(contentType, "text/html") {
		return nil, fmt.Errorf("%w: %q", ErrNotHTML, contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFetch, err)
	}

	return body, nil
}

func (i *Ingester) extract(pageURL *url.URL, body []byte) (model.Article, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return model.Article{}, fmt.Errorf("parse document: %w", err)
	}

	// Метаданные читаем до извлечения текста: запасной вариант вырезает часть разметки
	article := model.Article{
		URL:           pageURL.String(),
		Title:         extractTitle(doc, pageURL),
		Author:        extractAuthor(doc),
		PublishedDate: extractPublishedDate(doc),
		Description:   extractDescription(doc),
		Domain:        pageURL.Host,
		Status:        model.StatusUnread,
	}

	content := SanitizeContent(i.extractContent(pageURL, body, doc), i.cfg.MaxContentLength)
	if n := utf8.RuneCountInString(content); n < minContentLength {
		return model.Article{}, fmt.Errorf("%w: %d characters", ErrInsufficientContent, n)
	}

	now := i.now().UTC()

	article.Content = content
	article.ReadingTime = EstimateReadingTime(content)
	article.FetchedAt = now
	article.SavedAt = now

	return article, nil
}

// Основной текст берем из readability, если она не справилась, то из разметки страницы
func (i *Ingester) extractContent(pageURL *url.URL, body []byte, doc *goquery.Document) string {
	parsed, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil && utf8.RuneCountInString(strings.TrimSpace(parsed.TextContent)) >= 200 {
		return parsed.TextContent
	}

	if err != nil {
		i.logger.Debug("readability failed, falling back to markup", zap.Error(err))
	}

	return fallbackContent(doc)
}

var contentSelectors = []string{
	"article",
	`[role="main"]`,
	".article-content",
	".post-content",
	".entry-content",
	".content",
	"main",
	"#content",
	".story-body",
}

func fallbackContent(doc *goquery.Document) string {
	doc.Find("script, style, nav, header, footer, aside, iframe, noscript, form").Remove()

	var content string
	for _, selector := range contentSelectors {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			content = sel.Text()
			if utf8.RuneCountInString(strings.TrimSpace(content)) > 200 {
				return content
			}
		}
	}

	return doc.Find("body").Text()
}

var titleSeparators = []string{" - ", " | ", " :: "}

func extractTitle(doc *goquery.Document, pageURL *url.URL) string {
	title := firstNonEmpty(
		metaContent(doc, `meta[property="og:title"]`),
		metaContent(doc, `meta[name="twitter:title"]`),
		strings.TrimSpace(doc.Find("h1").First().Text()),
		strings.TrimSpace(doc.Find("title").First().Text()),
	)

	if title == "" {
		title = path.Base(strings.TrimSuffix(pageURL.Path, "/"))
		if title == "" || title == "." || title == "/" {
			title = pageURL.String()
		}
	}

	// Отрезаем название сайта: "Статья - Сайт"
	for _, sep := range titleSeparators {
		if before, _, found := strings.Cut(title, sep); found {
			title = before
		}
	}

	return truncateRunes(strings.TrimSpace(title), maxTitleLength)
}

var authorSelectors = []string{".author", ".author-name", ".by-author", `[rel="author"]`, ".post-author"}

func extractAuthor(doc *goquery.Document) string {
	if author := firstNonEmpty(
		metaContent(doc, `meta[name="author"]`),
		metaContent(doc, `meta[property="article:author"]`),
	); author != "" {
		return author
	}

	for _, selector := range authorSelectors {
		if author := strings.TrimSpace(doc.Find(selector).First().Text()); author != "" {
			return author
		}
	}

	return ""
}

func extractPublishedDate(doc *goquery.Document) string {
	if published := metaContent(doc, `meta[property="article:published_time"]`); published != "" {
		return published
	}

	timeTag := doc.Find("time").First()
	if datetime := strings.TrimSpace(timeTag.AttrOr("datetime", "")); datetime != "" {
		return datetime
	}

	return strings.TrimSpace(timeTag.Text())
}

func extractDescription(doc *goquery.Document) string {
	return firstNonEmpty(
		metaContent(doc, `meta[property="og:description"]`),
		metaContent(doc, `meta[name="description"]`),
		metaContent(doc, `meta[name="twitter:description"]`),
	)
}

func metaContent(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().AttrOr("content", ""))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Схлопывает пробельные символы и обрезает текст до maxLength символов
func SanitizeContent(content string, maxLength int) string {
	content = strings.Join(strings.Fields(content), " ")

	if utf8.RuneCountInString(content) > maxLength {
		return truncateRunes(content, maxLength) + "..."
	}

	return content
}

// Минуты чтения при 225 словах в минуту, не меньше одной
func EstimateReadingTime(content string) int {
	words := len(strings.Fields(content))
	return int(math.Max(1, math.Round(float64(words)/wordsPerMinute)))
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidURL):
		return "invalid_url"
	case errors.Is(err, ErrFetch):
		return "fetch"
	case errors.Is(err, ErrNotHTML):
		return "not_html"
	case errors.Is(err, ErrInsufficientContent):
		return "insufficient_content"
	default:
		return "internal"
	}
}
