// internal/domain/article/model.go

package article

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no article has the requested id
var ErrNotFound = errors.New("article not found")

// Article is the content item ranked by the trending engine
type Article struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	URL             string    `json:"url,omitempty"`
	Source          string    `json:"source,omitempty"`
	Categories      []string  `json:"category,omitempty"`
	PublicationDate time.Time `json:"publicationDate"`
}

// Finder looks articles up by id
type Finder interface {
	// FindByID returns the article or an error wrapping ErrNotFound
	FindByID(ctx context.Context, id string) (*Article, error)
}

// Trending pairs a ranked item with its article, when the document store has one
type Trending struct {
	ID            string   `json:"id"`
	TrendingScore float64  `json:"trendingScore"`
	DistanceKm    float64  `json:"distance"`
	Article       *Article `json:"article,omitempty"`
}
