package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/courtline/content-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS pillars (
	id                 TEXT PRIMARY KEY,
	title              TEXT NOT NULL,
	slug               TEXT NOT NULL UNIQUE,
	primary_keywords   TEXT NOT NULL DEFAULT '[]',
	secondary_keywords TEXT NOT NULL DEFAULT '[]',
	active             INTEGER NOT NULL DEFAULT 1,
	created_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS topics (
	id              TEXT PRIMARY KEY,
	pillar_id       TEXT NOT NULL REFERENCES pillars(id),
	subject         TEXT NOT NULL,
	article_type    TEXT NOT NULL,
	target_keyword  TEXT NOT NULL,
	generated_title TEXT,
	priority        INTEGER NOT NULL DEFAULT 100,
	status          TEXT NOT NULL DEFAULT 'queued',
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS articles (
	id               TEXT PRIMARY KEY,
	topic_id         TEXT NOT NULL REFERENCES topics(id),
	title            TEXT NOT NULL,
	slug             TEXT NOT NULL UNIQUE,
	meta_description TEXT NOT NULL DEFAULT '',
	body             TEXT NOT NULL,
	excerpt          TEXT NOT NULL DEFAULT '',
	tags             TEXT NOT NULL DEFAULT '[]',
	target_keywords  TEXT NOT NULL DEFAULT '[]',
	article_type     TEXT NOT NULL,
	word_count       INTEGER NOT NULL DEFAULT 0,
	reading_time_min INTEGER NOT NULL DEFAULT 0,
	hero_image       TEXT,
	review_score     INTEGER NOT NULL DEFAULT 0,
	published_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	topic_id   TEXT NOT NULL REFERENCES topics(id),
	status     TEXT NOT NULL DEFAULT 'running',
	result     TEXT,
	cost_usd   REAL NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_topics_status ON topics(status);
CREATE INDEX IF NOT EXISTS idx_topics_status_priority ON topics(status, priority);
CREATE INDEX IF NOT EXISTS idx_topics_pillar ON topics(pillar_id);
CREATE INDEX IF NOT EXISTS idx_articles_topic ON articles(topic_id);
CREATE INDEX IF NOT EXISTS idx_runs_topic ON runs(topic_id);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_updated ON runs(updated_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SeedTopics(ctx context.Context, topics []model.Topic) (int, error) {
	if len(topics) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin seed")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	inserted := 0
	for _, topic := range topics {
		if topic.ID == "" {
			topic.ID = uuid.New().String()
		}
		if topic.Status == "" {
			topic.Status = model.TopicStatusQueued
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO topics (id, pillar_id, subject, article_type, target_keyword, priority, status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (id) DO NOTHING`,
			topic.ID, topic.PillarID, topic.Subject, string(topic.ArticleType),
			topic.TargetKeyword, topic.Priority, string(topic.Status), now, now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: seed topic %s", topic.Subject)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit seed")
	}
	return inserted, nil
}

func (s *SQLiteStore) FetchTopics(ctx context.Context, filter TopicFilter) ([]model.Topic, error) {
	query := `SELECT id, pillar_id, subject, article_type, target_keyword, generated_title, priority, status, created_at, updated_at
	          FROM topics WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.ArticleType != "" {
		query += ` AND article_type = ?`
		args = append(args, string(filter.ArticleType))
	}
	if filter.PillarID != "" {
		query += ` AND pillar_id = ?`
		args = append(args, filter.PillarID)
	}
	query += ` ORDER BY priority ASC, created_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: fetch topics")
	}
	defer rows.Close()

	var topics []model.Topic
	for rows.Next() {
		topic, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		topics = append(topics, *topic)
	}
	return topics, eris.Wrap(rows.Err(), "sqlite: fetch topics iterate")
}

func (s *SQLiteStore) GetTopic(ctx context.Context, topicID string) (*model.Topic, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, pillar_id, subject, article_type, target_keyword, generated_title, priority, status, created_at, updated_at
		 FROM topics WHERE id = ?`,
		topicID,
	)
	topic, err := scanTopic(row)
	if err != nil {
		return nil, err
	}
	return topic, nil
}

// PatchTopicStatus validates the transition against the current status inside
// a transaction. The UPDATE re-checks the old status so a concurrent writer
// cannot slip a topic past the transition table.
func (s *SQLiteStore) PatchTopicStatus(ctx context.Context, topicID string, to model.TopicStatus, patch TopicPatch) error {
	if !to.Valid() {
		return eris.Wrapf(ErrInvalidTransition, "unknown status %q", to)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin patch")
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM topics WHERE id = ?`, topicID).Scan(&current)
	if err == sql.ErrNoRows {
		return eris.Wrapf(ErrNotFound, "topic %s", topicID)
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: read topic status %s", topicID)
	}

	from := model.TopicStatus(current)
	if !model.CanTransition(from, to) {
		return eris.Wrapf(ErrInvalidTransition, "%s -> %s for topic %s", from, to, topicID)
	}

	query := `UPDATE topics SET status = ?, updated_at = ?`
	args := []any{string(to), time.Now().UTC()}
	if patch.GeneratedTitle != "" {
		query += `, generated_title = ?`
		args = append(args, patch.GeneratedTitle)
	}
	query += ` WHERE id = ? AND status = ?`
	args = append(args, topicID, current)

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: patch topic %s", topicID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Wrapf(ErrInvalidTransition, "topic %s changed concurrently", topicID)
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit patch")
}

func (s *SQLiteStore) CreatePillar(ctx context.Context, pillar model.Pillar) error {
	if pillar.ID == "" {
		pillar.ID = uuid.New().String()
	}
	primaryJSON, err := json.Marshal(pillar.PrimaryKeywords)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal primary keywords")
	}
	secondaryJSON, err := json.Marshal(pillar.SecondaryKeywords)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal secondary keywords")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pillars (id, title, slug, primary_keywords, secondary_keywords, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		pillar.ID, pillar.Title, pillar.Slug, string(primaryJSON), string(secondaryJSON),
		boolToInt(pillar.Active), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert pillar %s", pillar.Slug)
}

func (s *SQLiteStore) ListPillars(ctx context.Context, activeOnly bool) ([]model.Pillar, error) {
	query := `SELECT id, title, slug, primary_keywords, secondary_keywords, active, created_at FROM pillars`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list pillars")
	}
	defer rows.Close()

	var pillars []model.Pillar
	for rows.Next() {
		var p model.Pillar
		var primaryJSON, secondaryJSON string
		var active int
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &primaryJSON, &secondaryJSON, &active, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan pillar")
		}
		if err := json.Unmarshal([]byte(primaryJSON), &p.PrimaryKeywords); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal primary keywords")
		}
		if err := json.Unmarshal([]byte(secondaryJSON), &p.SecondaryKeywords); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal secondary keywords")
		}
		p.Active = active == 1
		pillars = append(pillars, p)
	}
	return pillars, eris.Wrap(rows.Err(), "sqlite: list pillars iterate")
}

func (s *SQLiteStore) CreateArticle(ctx context.Context, article *model.Article) error {
	if article.ID == "" {
		article.ID = uuid.New().String()
	}
	if article.PublishedAt.IsZero() {
		article.PublishedAt = time.Now().UTC()
	}

	keywordsJSON, err := json.Marshal(article.TargetKeywords)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal keywords")
	}
	tagsJSON, err := json.Marshal(article.Tags)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal tags")
	}
	var heroJSON sql.NullString
	if article.HeroImage != nil {
		data, err := json.Marshal(article.HeroImage)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal hero image")
		}
		heroJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO articles (id, topic_id, title, slug, meta_description, body, excerpt, tags, target_keywords,
		                       article_type, word_count, reading_time_min, hero_image, review_score, published_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		article.ID, article.TopicID, article.Title, article.Slug, article.MetaDescription,
		article.Body, article.Excerpt, string(tagsJSON), string(keywordsJSON), string(article.ArticleType),
		article.WordCount, article.ReadingTimeMin, heroJSON, article.ReviewScore, article.PublishedAt,
	)
	return eris.Wrapf(err, "sqlite: insert article %s", article.Slug)
}

func (s *SQLiteStore) GetArticleBySlug(ctx context.Context, slug string) (*model.Article, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, topic_id, title, slug, meta_description, body, excerpt, tags, target_keywords,
		        article_type, word_count, reading_time_min, hero_image, review_score, published_at
		 FROM articles WHERE slug = ?`,
		slug,
	)
	return scanArticle(row)
}

// ListArticles returns the newest articles without bodies. The linking
// stage turns these into its catalog, so only the fields a link needs come
// back.
func (s *SQLiteStore) ListArticles(ctx context.Context, limit int) ([]model.Article, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, slug, meta_description, tags, article_type, published_at
		 FROM articles ORDER BY published_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list articles")
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		var a model.Article
		var tagsJSON string
		if err := rows.Scan(&a.ID, &a.Title, &a.Slug, &a.MetaDescription, &tagsJSON, &a.ArticleType, &a.PublishedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan article summary")
		}
		if err := json.Unmarshal([]byte(tagsJSON), &a.Tags); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal tags")
		}
		articles = append(articles, a)
	}
	return articles, eris.Wrap(rows.Err(), "sqlite: list articles iterate")
}

func (s *SQLiteStore) CountArticlesByKeyword(ctx context.Context, keyword string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles, json_each(articles.target_keywords)
		 WHERE json_each.value = ? COLLATE NOCASE`,
		keyword,
	).Scan(&count)
	return count, eris.Wrap(err, "sqlite: count articles by keyword")
}

func (s *SQLiteStore) CreateRun(ctx context.Context, topicID string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, topic_id, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, topicID, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert run for topic %s", topicID)
	}

	return &model.Run{
		ID:        id,
		TopicID:   topicID,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, result *model.GenerationResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run result")
	}
	var cost float64
	if result != nil {
		cost = result.Metrics.TotalCostUSD
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, result = ?, cost_usd = ?, updated_at = ? WHERE id = ?`,
		string(status), string(resultJSON), cost, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, topic_id, status, result, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.TopicID != "" {
		query += ` AND topic_id = ?`
		args = append(args, filter.TopicID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if !filter.Since.IsZero() {
		query += ` AND updated_at >= ?`
		args = append(args, filter.Since.UTC())
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) CostSince(ctx context.Context, since time.Time) (float64, error) {
	var total float64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost_usd), 0) FROM runs WHERE updated_at >= ?`,
		since.UTC(),
	).Scan(&total)
	return total, eris.Wrap(err, "sqlite: cost since")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTopic(row scannable) (*model.Topic, error) {
	var t model.Topic
	var generatedTitle sql.NullString

	err := row.Scan(&t.ID, &t.PillarID, &t.Subject, &t.ArticleType, &t.TargetKeyword,
		&generatedTitle, &t.Priority, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "topic")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan topic")
	}
	t.GeneratedTitle = generatedTitle.String
	return &t, nil
}

func scanArticle(row scannable) (*model.Article, error) {
	var a model.Article
	var tagsJSON, keywordsJSON string
	var heroJSON sql.NullString

	err := row.Scan(&a.ID, &a.TopicID, &a.Title, &a.Slug, &a.MetaDescription, &a.Body,
		&a.Excerpt, &tagsJSON, &keywordsJSON, &a.ArticleType, &a.WordCount, &a.ReadingTimeMin,
		&heroJSON, &a.ReviewScore, &a.PublishedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "article")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan article")
	}

	if err := json.Unmarshal([]byte(tagsJSON), &a.Tags); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal tags")
	}
	if err := json.Unmarshal([]byte(keywordsJSON), &a.TargetKeywords); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal keywords")
	}
	if heroJSON.Valid {
		a.HeroImage = &model.ImageAsset{}
		if err := json.Unmarshal([]byte(heroJSON.String), a.HeroImage); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal hero image")
		}
	}
	return &a, nil
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var resultJSON sql.NullString

	err := row.Scan(&r.ID, &r.TopicID, &r.Status, &resultJSON, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "run")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if resultJSON.Valid && resultJSON.String != "null" {
		r.Result = &model.GenerationResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal run result")
		}
	}
	return &r, nil
}
