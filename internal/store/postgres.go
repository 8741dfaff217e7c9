package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/courtline/content-cli/internal/db"
	"github.com/courtline/content-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_topic":          `SELECT id, pillar_id, subject, article_type, target_keyword, generated_title, priority, status, created_at, updated_at FROM topics WHERE id = $1`,
	"insert_run":         `INSERT INTO runs (id, topic_id, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
	"complete_run":       `UPDATE runs SET status = $1, result = $2, cost_usd = $3, updated_at = $4 WHERE id = $5`,
	"count_by_keyword": `SELECT COUNT(*) FROM articles
		WHERE EXISTS (SELECT 1 FROM jsonb_array_elements_text(target_keywords) AS kw WHERE lower(kw) = lower($1))`,
	"cost_since":         `SELECT COALESCE(SUM(cost_usd), 0) FROM runs WHERE updated_at >= $1`,
	"get_article_slug":   `SELECT id, topic_id, title, slug, meta_description, body, excerpt, tags, target_keywords, article_type, word_count, reading_time_min, hero_image, review_score, published_at FROM articles WHERE slug = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access (e.g., bulk topic import).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS pillars (
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	title              TEXT NOT NULL,
	slug               TEXT NOT NULL UNIQUE,
	primary_keywords   JSONB NOT NULL DEFAULT '[]',
	secondary_keywords JSONB NOT NULL DEFAULT '[]',
	active             BOOLEAN NOT NULL DEFAULT true,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS topics (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	pillar_id       TEXT NOT NULL REFERENCES pillars(id),
	subject         TEXT NOT NULL,
	article_type    TEXT NOT NULL,
	target_keyword  TEXT NOT NULL,
	generated_title TEXT,
	priority        INTEGER NOT NULL DEFAULT 100,
	status          TEXT NOT NULL DEFAULT 'queued',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS articles (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	topic_id         TEXT NOT NULL REFERENCES topics(id),
	title            TEXT NOT NULL,
	slug             TEXT NOT NULL UNIQUE,
	meta_description TEXT NOT NULL DEFAULT '',
	body             TEXT NOT NULL,
	excerpt          TEXT NOT NULL DEFAULT '',
	tags             JSONB NOT NULL DEFAULT '[]',
	target_keywords  JSONB NOT NULL DEFAULT '[]',
	article_type     TEXT NOT NULL,
	word_count       INTEGER NOT NULL DEFAULT 0,
	reading_time_min INTEGER NOT NULL DEFAULT 0,
	hero_image       JSONB,
	review_score     INTEGER NOT NULL DEFAULT 0,
	published_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	topic_id   TEXT NOT NULL REFERENCES topics(id),
	status     TEXT NOT NULL DEFAULT 'running',
	result     JSONB,
	cost_usd   DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_topics_status ON topics(status);
CREATE INDEX IF NOT EXISTS idx_topics_status_priority ON topics(status, priority);
CREATE INDEX IF NOT EXISTS idx_topics_pillar ON topics(pillar_id);
CREATE INDEX IF NOT EXISTS idx_articles_topic ON articles(topic_id);
CREATE INDEX IF NOT EXISTS idx_articles_keywords ON articles USING gin(target_keywords);
CREATE INDEX IF NOT EXISTS idx_runs_topic ON runs(topic_id);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_updated ON runs(updated_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SeedTopics(ctx context.Context, topics []model.Topic) (int, error) {
	if len(topics) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	inserted := 0
	for _, topic := range topics {
		if topic.ID == "" {
			topic.ID = uuid.New().String()
		}
		if topic.Status == "" {
			topic.Status = model.TopicStatusQueued
		}
		tag, err := s.pool.Exec(ctx,
			`INSERT INTO topics (id, pillar_id, subject, article_type, target_keyword, priority, status, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (id) DO NOTHING`,
			topic.ID, topic.PillarID, topic.Subject, string(topic.ArticleType),
			topic.TargetKeyword, topic.Priority, string(topic.Status), now, now,
		)
		if err != nil {
			return inserted, eris.Wrapf(err, "postgres: seed topic %s", topic.Subject)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// BulkSeedTopics inserts topics via the COPY protocol. Faster than SeedTopics
// for large spreadsheet imports, but does not skip duplicates.
func (s *PostgresStore) BulkSeedTopics(ctx context.Context, topics []model.Topic) (int, error) {
	now := time.Now().UTC()
	rows := make([][]any, len(topics))
	for i, topic := range topics {
		id := topic.ID
		if id == "" {
			id = uuid.New().String()
		}
		status := topic.Status
		if status == "" {
			status = model.TopicStatusQueued
		}
		rows[i] = []any{id, topic.PillarID, topic.Subject, string(topic.ArticleType),
			topic.TargetKeyword, topic.Priority, string(status), now, now}
	}

	n, err := db.CopyFrom(ctx, s.pool, "topics",
		[]string{"id", "pillar_id", "subject", "article_type", "target_keyword", "priority", "status", "created_at", "updated_at"},
		rows)
	return int(n), err
}

func (s *PostgresStore) FetchTopics(ctx context.Context, filter TopicFilter) ([]model.Topic, error) {
	query := `SELECT id, pillar_id, subject, article_type, target_keyword, generated_title, priority, status, created_at, updated_at
	          FROM topics WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = ` + placeholder(len(args))
	}
	if filter.ArticleType != "" {
		args = append(args, string(filter.ArticleType))
		query += ` AND article_type = ` + placeholder(len(args))
	}
	if filter.PillarID != "" {
		args = append(args, filter.PillarID)
		query += ` AND pillar_id = ` + placeholder(len(args))
	}
	query += ` ORDER BY priority ASC, created_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT ` + placeholder(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: fetch topics")
	}
	defer rows.Close()

	var topics []model.Topic
	for rows.Next() {
		topic, err := scanPgTopic(rows)
		if err != nil {
			return nil, err
		}
		topics = append(topics, *topic)
	}
	return topics, eris.Wrap(rows.Err(), "postgres: fetch topics iterate")
}

func (s *PostgresStore) GetTopic(ctx context.Context, topicID string) (*model.Topic, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, pillar_id, subject, article_type, target_keyword, generated_title, priority, status, created_at, updated_at
		 FROM topics WHERE id = $1`,
		topicID,
	)
	return scanPgTopic(row)
}

func (s *PostgresStore) PatchTopicStatus(ctx context.Context, topicID string, to model.TopicStatus, patch TopicPatch) error {
	if !to.Valid() {
		return eris.Wrapf(ErrInvalidTransition, "unknown status %q", to)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin patch")
	}
	defer tx.Rollback(ctx)

	var current string
	err = tx.QueryRow(ctx, `SELECT status FROM topics WHERE id = $1 FOR UPDATE`, topicID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, "topic %s", topicID)
	}
	if err != nil {
		return eris.Wrapf(err, "postgres: read topic status %s", topicID)
	}

	from := model.TopicStatus(current)
	if !model.CanTransition(from, to) {
		return eris.Wrapf(ErrInvalidTransition, "%s -> %s for topic %s", from, to, topicID)
	}

	if patch.GeneratedTitle != "" {
		_, err = tx.Exec(ctx,
			`UPDATE topics SET status = $1, generated_title = $2, updated_at = $3 WHERE id = $4`,
			string(to), patch.GeneratedTitle, time.Now().UTC(), topicID,
		)
	} else {
		_, err = tx.Exec(ctx,
			`UPDATE topics SET status = $1, updated_at = $2 WHERE id = $3`,
			string(to), time.Now().UTC(), topicID,
		)
	}
	if err != nil {
		return eris.Wrapf(err, "postgres: patch topic %s", topicID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit patch")
}

func (s *PostgresStore) CreatePillar(ctx context.Context, pillar model.Pillar) error {
	if pillar.ID == "" {
		pillar.ID = uuid.New().String()
	}
	primaryJSON, err := json.Marshal(pillar.PrimaryKeywords)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal primary keywords")
	}
	secondaryJSON, err := json.Marshal(pillar.SecondaryKeywords)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal secondary keywords")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO pillars (id, title, slug, primary_keywords, secondary_keywords, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		pillar.ID, pillar.Title, pillar.Slug, primaryJSON, secondaryJSON, pillar.Active, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: insert pillar %s", pillar.Slug)
}

func (s *PostgresStore) ListPillars(ctx context.Context, activeOnly bool) ([]model.Pillar, error) {
	query := `SELECT id, title, slug, primary_keywords, secondary_keywords, active, created_at FROM pillars`
	if activeOnly {
		query += ` WHERE active = true`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list pillars")
	}
	defer rows.Close()

	var pillars []model.Pillar
	for rows.Next() {
		var p model.Pillar
		var primaryJSON, secondaryJSON []byte
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &primaryJSON, &secondaryJSON, &p.Active, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan pillar")
		}
		if err := json.Unmarshal(primaryJSON, &p.PrimaryKeywords); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal primary keywords")
		}
		if err := json.Unmarshal(secondaryJSON, &p.SecondaryKeywords); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal secondary keywords")
		}
		pillars = append(pillars, p)
	}
	return pillars, eris.Wrap(rows.Err(), "postgres: list pillars iterate")
}

func (s *PostgresStore) CreateArticle(ctx context.Context, article *model.Article) error {
	if article.ID == "" {
		article.ID = uuid.New().String()
	}
	if article.PublishedAt.IsZero() {
		article.PublishedAt = time.Now().UTC()
	}

	keywordsJSON, err := json.Marshal(article.TargetKeywords)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal keywords")
	}
	tagsJSON, err := json.Marshal(article.Tags)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal tags")
	}
	var heroJSON []byte
	if article.HeroImage != nil {
		heroJSON, err = json.Marshal(article.HeroImage)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal hero image")
		}
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO articles (id, topic_id, title, slug, meta_description, body, excerpt, tags, target_keywords,
		                       article_type, word_count, reading_time_min, hero_image, review_score, published_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		article.ID, article.TopicID, article.Title, article.Slug, article.MetaDescription,
		article.Body, article.Excerpt, tagsJSON, keywordsJSON, string(article.ArticleType),
		article.WordCount, article.ReadingTimeMin, heroJSON, article.ReviewScore, article.PublishedAt,
	)
	return eris.Wrapf(err, "postgres: insert article %s", article.Slug)
}

func (s *PostgresStore) GetArticleBySlug(ctx context.Context, slug string) (*model.Article, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, topic_id, title, slug, meta_description, body, excerpt, tags, target_keywords,
		        article_type, word_count, reading_time_min, hero_image, review_score, published_at
		 FROM articles WHERE slug = $1`,
		slug,
	)
	return scanPgArticle(row)
}

// ListArticles returns the newest articles without bodies, scoped to the
// fields the linking catalog needs.
func (s *PostgresStore) ListArticles(ctx context.Context, limit int) ([]model.Article, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, slug, meta_description, tags, article_type, published_at
		 FROM articles ORDER BY published_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list articles")
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		var a model.Article
		var tagsJSON []byte
		if err := rows.Scan(&a.ID, &a.Title, &a.Slug, &a.MetaDescription, &tagsJSON, &a.ArticleType, &a.PublishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan article summary")
		}
		if err := json.Unmarshal(tagsJSON, &a.Tags); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal tags")
		}
		articles = append(articles, a)
	}
	return articles, eris.Wrap(rows.Err(), "postgres: list articles iterate")
}

// CountArticlesByKeyword matches keywords case-insensitively. Stored keyword
// lists can carry title-cased entries while dedup lookups use the lowercased
// form, and both backends must agree on what counts as a duplicate.
func (s *PostgresStore) CountArticlesByKeyword(ctx context.Context, keyword string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM articles
		 WHERE EXISTS (SELECT 1 FROM jsonb_array_elements_text(target_keywords) AS kw WHERE lower(kw) = lower($1))`,
		keyword,
	).Scan(&count)
	return count, eris.Wrap(err, "postgres: count articles by keyword")
}

func (s *PostgresStore) CreateRun(ctx context.Context, topicID string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, topic_id, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, topicID, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert run for topic %s", topicID)
	}

	return &model.Run{
		ID:        id,
		TopicID:   topicID,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, result *model.GenerationResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run result")
	}
	var cost float64
	if result != nil {
		cost = result.Metrics.TotalCostUSD
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, result = $2, cost_usd = $3, updated_at = $4 WHERE id = $5`,
		string(status), resultJSON, cost, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, topic_id, status, result, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.TopicID != "" {
		args = append(args, filter.TopicID)
		query += ` AND topic_id = ` + placeholder(len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = ` + placeholder(len(args))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since.UTC())
		query += ` AND updated_at >= ` + placeholder(len(args))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT ` + placeholder(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) CostSince(ctx context.Context, since time.Time) (float64, error) {
	var total float64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(cost_usd), 0) FROM runs WHERE updated_at >= $1`,
		since.UTC(),
	).Scan(&total)
	return total, eris.Wrap(err, "postgres: cost since")
}

// helpers

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func scanPgTopic(row pgx.Row) (*model.Topic, error) {
	var t model.Topic
	var generatedTitle *string

	err := row.Scan(&t.ID, &t.PillarID, &t.Subject, &t.ArticleType, &t.TargetKeyword,
		&generatedTitle, &t.Priority, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "topic")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan topic")
	}
	if generatedTitle != nil {
		t.GeneratedTitle = *generatedTitle
	}
	return &t, nil
}

func scanPgArticle(row pgx.Row) (*model.Article, error) {
	var a model.Article
	var tagsJSON, keywordsJSON []byte
	var heroJSON []byte

	err := row.Scan(&a.ID, &a.TopicID, &a.Title, &a.Slug, &a.MetaDescription, &a.Body,
		&a.Excerpt, &tagsJSON, &keywordsJSON, &a.ArticleType, &a.WordCount, &a.ReadingTimeMin,
		&heroJSON, &a.ReviewScore, &a.PublishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "article")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan article")
	}

	if err := json.Unmarshal(tagsJSON, &a.Tags); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal tags")
	}
	if err := json.Unmarshal(keywordsJSON, &a.TargetKeywords); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal keywords")
	}
	if len(heroJSON) > 0 {
		a.HeroImage = &model.ImageAsset{}
		if err := json.Unmarshal(heroJSON, a.HeroImage); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal hero image")
		}
	}
	return &a, nil
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var resultJSON []byte

	err := row.Scan(&r.ID, &r.TopicID, &r.Status, &resultJSON, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "run")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}

	if len(resultJSON) > 0 && string(resultJSON) != "null" {
		r.Result = &model.GenerationResult{}
		if err := json.Unmarshal(resultJSON, r.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal run result")
		}
	}
	return &r, nil
}
