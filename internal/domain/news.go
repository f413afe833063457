package domain

import "time"

// News view filters. Favourite status is per-user set membership held
// client-side; it is never stored on the article row.
const (
	NewsTabPopular    = "popular"
	NewsTabFavourites = "favourites"
)

// Article is a curated article row (table: articles).
type Article struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Summary      string     `json:"summary"`
	URL          string     `json:"url"`
	Category     string     `json:"category"`
	Champion     string     `json:"champion,omitempty"`
	ThumbnailURL string     `json:"thumbnail_url,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}

// ArticleView is an article annotated with the requesting user's
// favourite overlay.
type ArticleView struct {
	Article
	IsFavourite bool `json:"is_favourite"`
}

// ArticleRead is a read-tracking row (table: user_article_reads).
type ArticleRead struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	ArticleID string     `json:"article_id"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}
