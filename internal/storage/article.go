package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/kovalyov-valentin/read-later-bot/internal/model"
	"github.com/lib/pq"
	"github.com/samber/lo"
	"strings"
	"time"
)

var ErrNotFound = errors.New("not found")

// Postgres ждет плейсхолдеры вида $1, $2
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var articleColumns = []string{
	"id",
	"url",
	"title",
	"content",
	"author",
	"published_date",
	"description",
	"reading_time",
	"domain",
	"fetched_at",
	"saved_at",
	"status",
	"category",
	"tags",
	"notes",
	"read_at",
}

type ArticlePostgresStorage struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewArticlePostgresStorage(db *sqlx.DB) *ArticlePostgresStorage {
	return &ArticlePostgresStorage{
		db:  db,
		now: time.Now,
	}
}

// Сохраняет статью вместе с событием saved в одной транзакции.
// Если URL уже есть, возвращает id существующей статьи и ничего не пишет.
// При гонке двух сохранений одного URL проигравший получает id победителя
func (s *ArticlePostgresStorage) SaveArticle(ctx context.Context, article model.Article) (int64, error) {
	id, _, err := s.CreateArticle(ctx, article)
	return id, err
}

// То же, что SaveArticle, но еще сообщает, была ли вставлена новая строка
func (s *ArticlePostgresStorage) CreateArticle(ctx context.Context, article model.Article) (int64, bool, error) {
	article = article.Normalize(s.now().UTC())

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := psql.
		Insert("articles").
		Columns(articleColumns[1:]...).
		Values(
			article.URL,
			article.Title,
			article.Content,
			article.Author,
			article.PublishedDate,
			article.Description,
			article.ReadingTime,
			article.Domain,
			article.FetchedAt,
			article.SavedAt,
			string(article.Status),
			article.Category,
			pq.StringArray(article.Tags),
			article.Notes,
			nullTime(article.ReadAt),
		).
		Suffix("ON CONFLICT (url) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return 0, false, fmt.Errorf("build insert: %w", err)
	}

	var id int64
	err = tx.GetContext(ctx, &id, query, args...)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Статья с таким URL уже сохранена
		if err := tx.GetContext(ctx, &id, `SELECT id FROM articles WHERE url = $1`, article.URL); err != nil {
			return 0, false, fmt.Errorf("select existing article: %w", err)
		}
		return id, false, tx.Commit()
	case err != nil:
		return 0, false, fmt.Errorf("insert article: %w", err)
	}

	if err := insertEvent(ctx, tx, id, model.EventSaved, article.SavedAt, ""); err != nil {
		return 0, false, err
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("commit: %w", err)
	}

	return id, true, nil
}

func (s *ArticlePostgresStorage) ArticleByID(ctx context.Context, id int64) (*model.Article, error) {
	return s.getArticle(ctx, psql.Select(articleColumns...).From("articles").Where(sq.Eq{"id": id}))
}

func (s *ArticlePostgresStorage) ArticleByURL(ctx context.Context, url string) (*model.Article, error) {
	return s.getArticle(ctx, psql.Select(articleColumns...).From("articles").Where(sq.Eq{"url": url}))
}

// Непрочитанные статьи, сначала недавно сохраненные
func (s *ArticlePostgresStorage) UnreadQueue(ctx context.Context, limit int) ([]model.Article, error) {
	return s.selectArticles(ctx, limit, sq.Eq{"status": string(model.StatusUnread)})
}

func (s *ArticlePostgresStorage) ArticlesByCategory(ctx context.Context, category string, limit int) ([]model.Article, error) {
	return s.selectArticles(ctx, limit, sq.Eq{"category": category})
}

// Поиск подстроки в заголовке или тексте без учета регистра
func (s *ArticlePostgresStorage) Search(ctx context.Context, text string, limit int) ([]model.Article, error) {
	pattern := "%" + likeEscaper.Replace(text) + "%"

	return s.selectArticles(ctx, limit, sq.Or{
		sq.ILike{"title": pattern},
		sq.ILike{"content": pattern},
	})
}

func (s *ArticlePostgresStorage) CategoryCounts(ctx context.Context) ([]model.CategoryCount, error) {
	var counts []model.CategoryCount
	if err := s.db.SelectContext(
		ctx,
		&counts,
		`SELECT category, COUNT(*) AS count FROM articles GROUP BY category ORDER BY count DESC, category ASC`,
	); err != nil {
		return nil, fmt.Errorf("select category counts: %w", err)
	}

	if counts == nil {
		counts = []model.CategoryCount{}
	}

	return counts, nil
}

// Переводит статью в прочитанные и пишет событие read.
// false, если статьи нет. Повторная отметка ничего не меняет
func (s *ArticlePostgresStorage) MarkRead(ctx context.Context, id int64) (bool, error) {
	found, _, err := s.MarkReadChanged(ctx, id)
	return found, err
}

// Как MarkRead. changed равен true, только если статья была непрочитанной
func (s *ArticlePostgresStorage) MarkReadChanged(ctx context.Context, id int64) (found, changed bool, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.GetContext(ctx, &status, `SELECT status FROM articles WHERE id = $1 FOR UPDATE`, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, false, nil
	case err != nil:
		return false, false, fmt.Errorf("select article status: %w", err)
	}

	if model.ArticleStatus(status) == model.StatusRead {
		return true, false, tx.Commit()
	}

	now := s.now().UTC()
	if _, err := tx.ExecContext(
		ctx,
		`UPDATE articles SET status = $1, read_at = $2 WHERE id = $3`,
		string(model.StatusRead),
		now,
		id,
	); err != nil {
		return false, false, fmt.Errorf("update article status: %w", err)
	}

	if err := insertEvent(ctx, tx, id, model.EventRead, now, ""); err != nil {
		return false, false, err
	}

	if err := tx.Commit(); err != nil {
		return false, false, fmt.Errorf("commit: %w", err)
	}

	return true, true, nil
}

func (s *ArticlePostgresStorage) UpdateCategory(ctx context.Context, id int64, category string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE articles SET category = $1 WHERE id = $2`, category, id)
	if err != nil {
		return false, fmt.Errorf("update category: %w", err)
	}

	return affected(res)
}

// Удаляет статью. События остаются для анализа привычек
func (s *ArticlePostgresStorage) DeleteArticle(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete article: %w", err)
	}

	return affected(res)
}

func (s *ArticlePostgresStorage) Statistics(ctx context.Context) (model.Statistics, error) {
	var totals dbTotals
	if err := s.db.GetContext(ctx, &totals, `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'read') AS read,
			COALESCE(SUM(reading_time), 0) AS total_time,
			COALESCE(SUM(reading_time) FILTER (WHERE status = 'read'), 0) AS read_time
		FROM articles`,
	); err != nil {
		return model.Statistics{}, fmt.Errorf("select totals: %w", err)
	}

	// При равенстве берем категорию по алфавиту, чтобы результат не зависел от плана запроса
	var topCategory string
	err := s.db.GetContext(
		ctx,
		&topCategory,
		`SELECT category FROM articles GROUP BY category ORDER BY COUNT(*) DESC, category ASC LIMIT 1`,
	)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return model.Statistics{}, fmt.Errorf("select top category: %w", err)
	}

	return model.NewStatistics(totals.Total, totals.Read, totals.TotalTime, totals.ReadTime, topCategory), nil
}

// Последние события, новые первыми. У событий удаленных статей нет title и url
func (s *ArticlePostgresStorage) RecentEvents(ctx context.Context, limit int) ([]model.Event, error) {
	if limit <= 0 {
		return []model.Event{}, nil
	}

	var events []dbEvent
	if err := s.db.SelectContext(ctx, &events, `
		SELECT
			e.id,
			e.article_id,
			e.event_type,
			e.timestamp,
			e.metadata,
			COALESCE(a.title, '') AS title,
			COALESCE(a.url, '') AS url
		FROM reading_events e
		LEFT JOIN articles a ON a.id = e.article_id
		ORDER BY e.timestamp DESC NULLS LAST, e.id DESC
		LIMIT $1`,
		limit,
	); err != nil {
		return nil, fmt.Errorf("select recent events: %w", err)
	}

	return lo.Map(events, func(event dbEvent, _ int) model.Event {
		return event.toModel()
	}), nil
}

// Удаляет прочитанные до cutoff статьи и события старше cutoff.
// Возвращает число удаленных статей
func (s *ArticlePostgresStorage) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().UTC().Add(-olderThan)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(
		ctx,
		`DELETE FROM articles WHERE status = $1 AND read_at < $2`,
		string(model.StatusRead),
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("delete old articles: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM reading_events WHERE timestamp < $1`, cutoff); err != nil {
		return 0, fmt.Errorf("delete old events: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	return deleted, nil
}

func (s *ArticlePostgresStorage) getArticle(ctx context.Context, qb sq.SelectBuilder) (*model.Article, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var article dbArticle
	if err := s.db.GetContext(ctx, &article, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select article: %w", err)
	}

	result := article.toModel()
	return &result, nil
}

func (s *ArticlePostgresStorage) selectArticles(ctx context.Context, limit int, where sq.Sqlizer) ([]model.Article, error) {
	if limit <= 0 {
		return []model.Article{}, nil
	}

	query, args, err := psql.
		Select(articleColumns...).
		From("articles").
		Where(where).
		OrderBy("saved_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var articles []dbArticle
	if err := s.db.SelectContext(ctx, &articles, query, args...); err != nil {
		return nil, fmt.Errorf("select articles: %w", err)
	}

	return lo.Map(articles, func(article dbArticle, _ int) model.Article {
		return article.toModel()
	}), nil
}

func insertEvent(ctx context.Context, tx *sqlx.Tx, articleID int64, eventType model.EventType, ts time.Time, metadata string) error {
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO reading_events (article_id, event_type, timestamp, metadata) VALUES ($1, $2, $3, $4)`,
		articleID,
		string(eventType),
		ts,
		metadata,
	); err != nil {
		return fmt.Errorf("insert %s event: %w", eventType, err)
	}

	return nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type dbArticle struct {
	ID            int64          `db:"id"`
	URL           string         `db:"url"`
	Title         string         `db:"title"`
	Content       string         `db:"content"`
	Author        string         `db:"author"`
	PublishedDate string         `db:"published_date"`
	Description   string         `db:"description"`
	ReadingTime   int            `db:"reading_time"`
	Domain        string         `db:"domain"`
	FetchedAt     time.Time      `db:"fetched_at"`
	SavedAt       time.Time      `db:"saved_at"`
	Status        string         `db:"status"`
	Category      string         `db:"category"`
	Tags          pq.StringArray `db:"tags"`
	Notes         string         `db:"notes"`
	ReadAt        sql.NullTime   `db:"read_at"`
}

func (a dbArticle) toModel() model.Article {
	article := model.Article{
		ID:            a.ID,
		URL:           a.URL,
		Title:         a.Title,
		Content:       a.Content,
		Author:        a.Author,
		PublishedDate: a.PublishedDate,
		Description:   a.Description,
		ReadingTime:   a.ReadingTime,
		Domain:        a.Domain,
		FetchedAt:     a.FetchedAt,
		SavedAt:       a.SavedAt,
		Status:        model.ArticleStatus(a.Status),
		Category:      a.Category,
		Tags:          []string(a.Tags),
		Notes:         a.Notes,
	}

	if a.ReadAt.Valid {
		readAt := a.ReadAt.Time
		article.ReadAt = &readAt
	}

	return article
}

type dbEvent struct {
	ID        int64        `db:"id"`
	ArticleID int64        `db:"article_id"`
	Type      string       `db:"event_type"`
	Timestamp sql.NullTime `db:"timestamp"`
	Metadata  string       `db:"metadata"`
	Title     string       `db:"title"`
	URL       string       `db:"url"`
}

func (e dbEvent) toModel() model.Event {
	return model.Event{
		ID:        e.ID,
		ArticleID: e.ArticleID,
		Type:      model.EventType(e.Type),
		// NULL превращается в нулевое время, анализатор такие события пропускает
		Timestamp: e.Timestamp.Time,
		Metadata:  e.Metadata,
		Title:     e.Title,
		URL:       e.URL,
	}
}

type dbTotals struct {
	Total     int `db:"total"`
	Read      int `db:"read"`
	TotalTime int `db:"total_time"`
	ReadTime  int `db:"read_time"`
}
