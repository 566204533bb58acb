package store

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/shortlink/internal/shortener"
)

const (
	uniqueViolation = "23505"

	constraintCode        = "short_urls_code_key"
	constraintAlias       = "short_urls_custom_alias_key"
	constraintOriginalURL = "short_urls_original_url_key"
)

const selectShortURL = `
	SELECT id, original_url, code, custom_alias, click_count, created_at, expires_at
	FROM short_urls
`

// A code match wins over an alias match so a key never resolves ambiguously.
const selectByKey = selectShortURL + `
	WHERE code = $1 OR custom_alias = $1
	ORDER BY (code = $1) DESC
	LIMIT 1
`

// PostgresStore is a PostgreSQL implementation of shortener.Repository.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed URL store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Create inserts a short URL. Codes and aliases share one key space, so the
// insert is skipped when the code is taken as an alias or the alias as a code.
// Advisory locks on both keys serialize creates that could shadow each other.
func (p *PostgresStore) Create(ctx context.Context, shortURL *shortener.ShortURL) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() { _ = tx.Rollback(ctx) }()

	for _, key := range lockKeys(shortURL) {
		if _, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
			return fmt.Errorf("lock key %q: %w", key, err)
		}
	}

	query := `
		INSERT INTO short_urls (id, original_url, code, custom_alias, click_count, created_at, expires_at)
		SELECT $1::uuid, $2::text, $3::text, $4::text, $5::bigint, $6::timestamptz, $7::timestamptz
		WHERE NOT EXISTS (SELECT 1 FROM short_urls WHERE custom_alias = $3)
		  AND ($4::text IS NULL OR NOT EXISTS (SELECT 1 FROM short_urls WHERE code = $4))
	`

	tag, err := tx.Exec(ctx, query,
		shortURL.ID,
		shortURL.OriginalURL,
		string(shortURL.Code),
		nullableString(shortURL.CustomAlias),
		shortURL.ClickCount,
		shortURL.CreatedAt,
		shortURL.ExpiresAt,
	)
	if err != nil {
		return mapWriteError(err)
	}

	if tag.RowsAffected() == 0 {
		return shadowError(ctx, tx, shortURL)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// lockKeys returns the lookup keys of shortURL in a stable order.
func lockKeys(shortURL *shortener.ShortURL) []string {
	keys := []string{string(shortURL.Code)}
	if shortURL.CustomAlias != "" && shortURL.CustomAlias != string(shortURL.Code) {
		keys = append(keys, shortURL.CustomAlias)
	}

	slices.Sort(keys)

	return keys
}

// shadowError tells which guard of Create skipped the insert.
func shadowError(ctx context.Context, tx pgx.Tx, shortURL *shortener.ShortURL) error {
	var codeIsAlias bool

	err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM short_urls WHERE custom_alias = $1)`,
		string(shortURL.Code),
	).Scan(&codeIsAlias)
	if err != nil {
		return fmt.Errorf("check key space: %w", err)
	}

	if codeIsAlias {
		return shortener.ErrCodeCollision
	}

	return shortener.ErrAliasInUse
}

func (p *PostgresStore) FindByKey(ctx context.Context, key string) (*shortener.ShortURL, error) {
	return scanShortURL(p.pool.QueryRow(ctx, selectByKey, key))
}

func (p *PostgresStore) FindByCode(ctx context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	return scanShortURL(p.pool.QueryRow(ctx, selectShortURL+"WHERE code = $1", string(code)))
}

func (p *PostgresStore) FindByOriginalURL(ctx context.Context, originalURL string) (*shortener.ShortURL, error) {
	return scanShortURL(p.pool.QueryRow(ctx, selectShortURL+"WHERE original_url = $1", originalURL))
}

// ResolveAndTrack locks the row for the duration of the transaction, so
// concurrent redirects of the same URL are applied one after another.
func (p *PostgresStore) ResolveAndTrack(
	ctx context.Context, key string, click *shortener.ClickEvent,
) (*shortener.ShortURL, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	// No-op once the transaction is committed.
	defer func() { _ = tx.Rollback(ctx) }()

	url, err := scanShortURL(tx.QueryRow(ctx, selectByKey+"FOR UPDATE", key))
	if err != nil {
		return nil, err
	}

	if url.Expired(click.ClickedAt) {
		return nil, shortener.ErrExpired
	}

	err = tx.QueryRow(ctx,
		`UPDATE short_urls SET click_count = click_count + 1 WHERE id = $1 RETURNING click_count`,
		url.ID,
	).Scan(&url.ClickCount)
	if err != nil {
		return nil, fmt.Errorf("increment click count: %w", err)
	}

	click.URLID = url.ID

	_, err = tx.Exec(ctx,
		`INSERT INTO url_clicks (id, url_id, clicked_at, ip_address) VALUES ($1, $2, $3, $4)`,
		click.ID, click.URLID, click.ClickedAt, click.IPAddress,
	)
	if err != nil {
		return nil, fmt.Errorf("insert click: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return url, nil
}

func (p *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM short_urls WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return shortener.ErrNotFound
	}

	return nil
}

func (p *PostgresStore) RecentClicks(ctx context.Context, urlID uuid.UUID, limit int) ([]shortener.ClickEvent, error) {
	query := `
		SELECT id, url_id, clicked_at, ip_address
		FROM url_clicks
		WHERE url_id = $1
		ORDER BY clicked_at DESC, seq DESC
		LIMIT $2
	`

	rows, err := p.pool.Query(ctx, query, urlID, limit)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (shortener.ClickEvent, error) {
		var click shortener.ClickEvent

		err := row.Scan(&click.ID, &click.URLID, &click.ClickedAt, &click.IPAddress)

		return click, err
	})
}

// Ping checks database connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func scanShortURL(row pgx.Row) (*shortener.ShortURL, error) {
	var (
		url   shortener.ShortURL
		code  string
		alias *string
	)

	err := row.Scan(
		&url.ID,
		&url.OriginalURL,
		&code,
		&alias,
		&url.ClickCount,
		&url.CreatedAt,
		&url.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortener.ErrNotFound
		}

		return nil, err
	}

	url.Code = shortener.Code(code)

	if alias != nil {
		url.CustomAlias = *alias
	}

	return &url, nil
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}

	switch pgErr.ConstraintName {
	case constraintCode:
		return shortener.ErrCodeCollision
	case constraintAlias:
		return shortener.ErrAliasInUse
	case constraintOriginalURL:
		return shortener.ErrAlreadyShortened
	default:
		return err
	}
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

// Compile-time check.
var _ shortener.Repository = (*PostgresStore)(nil)
