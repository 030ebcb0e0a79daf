// internal/adapter/storage/article_store.go

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"geotrend/internal/domain/article"
)

// ArticleStore reads articles from PostgreSQL
type ArticleStore struct {
	db *pgxpool.Pool
}

// NewArticleStore creates a new article store
func NewArticleStore(db *pgxpool.Pool) *ArticleStore {
	return &ArticleStore{
		db: db,
	}
}

// FindByID retrieves an article by ID
func (s *ArticleStore) FindByID(ctx context.Context, id string) (*article.Article, error) {
	query := `
		SELECT id, title, description, url, source, categories, publication_date
		FROM articles
		WHERE id = $1
	`

	var a article.Article
	var description, url, source *string

	err := s.db.QueryRow(ctx, query, id).Scan(
		&a.ID,
		&a.Title,
		&description,
		&url,
		&source,
		&a.Categories,
		&a.PublicationDate,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", article.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying article: %w", err)
	}

	if description != nil {
		a.Description = *description
	}
	if url != nil {
		a.URL = *url
	}
	if source != nil {
		a.Source = *source
	}

	return &a, nil
}

// RandomID returns the id of a random article; ok is false when the table is empty
func (s *ArticleStore) RandomID(ctx context.Context) (string, bool, error) {
	query := `SELECT id FROM articles ORDER BY random() LIMIT 1`

	var id string
	err := s.db.QueryRow(ctx, query).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("error picking random article: %w", err)
	}
	return id, true, nil
}
