package supabase

import (
	"context"
	"time"

	"github.com/outbehaving/outbehaving-api/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Articles and read tracking
// ============================================================

func (c *Client) ListArticles(ctx context.Context, limit int) ([]domain.Article, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListArticles")
	defer span.End()

	body, err := c.Select(ctx, "articles", Query{
		Order: "created_at",
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}

	rows, err := decodeRows[domain.Article](body, "articles")
	if err != nil {
		return nil, err
	}

	articles := make([]domain.Article, 0, len(rows))
	for _, a := range rows {
		if a.ID == "" || a.Title == "" {
			c.logger.Warn("supabase: quarantined malformed article row",
				zap.String("article_id", a.ID),
			)
			continue
		}
		articles = append(articles, a)
	}
	return articles, nil
}

func (c *Client) HasRead(ctx context.Context, userID, articleID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Supabase.HasRead")
	defer span.End()

	body, err := c.Select(ctx, "user_article_reads", Query{
		Filters: map[string]string{
			"user_id":    userID,
			"article_id": articleID,
		},
		Limit: 1,
	})
	if err != nil {
		return false, err
	}

	rows, err := decodeRows[domain.ArticleRead](body, "user_article_reads")
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func (c *Client) InsertArticleRead(ctx context.Context, userID, articleID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.InsertArticleRead")
	defer span.End()

	_, err := c.Insert(ctx, "user_article_reads", map[string]any{
		"user_id":    userID,
		"article_id": articleID,
		"read_at":    time.Now().UTC().Format(time.RFC3339),
	})
	return err
}
