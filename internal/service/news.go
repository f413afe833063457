package service

import (
	"context"
	"fmt"

	"github.com/outbehaving/outbehaving-api/internal/domain"
	"github.com/outbehaving/outbehaving-api/internal/infra/observability"
	"github.com/outbehaving/outbehaving-api/internal/port"
	"github.com/outbehaving/outbehaving-api/internal/state"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var newsTracer = otel.Tracer("service/news")

const (
	articlesCacheKey = "articles:recent"
	defaultNewsLimit = 50
)

// NewsService orchestrates article listing, the favourites overlay and
// read tracking with its engagement award.
type NewsService struct {
	store   port.NewsStore
	points  port.EngagementWriter
	cache   port.Cache[[]domain.Article]
	states  *state.Registry[state.NewsState]
	metrics *observability.Metrics
	logger  *zap.Logger

	pointsArticleRead int
}

// NewNewsService creates a new news service.
func NewNewsService(
	store port.NewsStore,
	points port.EngagementWriter,
	cache port.Cache[[]domain.Article],
	states *state.Registry[state.NewsState],
	metrics *observability.Metrics,
	logger *zap.Logger,
	pointsArticleRead int,
) *NewsService {
	return &NewsService{
		store:             store,
		points:            points,
		cache:             cache,
		states:            states,
		metrics:           metrics,
		logger:            logger,
		pointsArticleRead: pointsArticleRead,
	}
}

// ============================================================
// List — GET /v1/users/{userId}/articles
// ============================================================

// List returns the articles visible on the given tab, annotated with the
// user's favourites overlay. An empty tab keeps the current one.
func (s *NewsService) List(ctx context.Context, userID, tab string) ([]domain.ArticleView, error) {
	ctx, span := newsTracer.Start(ctx, "NewsService.List")
	defer span.End()
	span.SetAttributes(attribute.String("news.tab", tab))

	st := s.states.For(userID)
	st.SetLoading(true)
	defer st.SetLoading(false)

	articles, err := s.recentArticles(ctx)
	if err != nil {
		st.SetError(err.Error())
		return nil, fmt.Errorf("list articles: %w", err)
	}

	st.SetError("")
	st.SetArticles(articles)
	if tab != "" {
		if tab != domain.NewsTabPopular && tab != domain.NewsTabFavourites {
			return nil, &domain.ErrValidation{Field: "tab", Message: "unknown tab"}
		}
		st.SetTab(tab)
	}
	return st.Visible(), nil
}

// ============================================================
// ToggleFavourite — POST /v1/users/{userId}/articles/{articleId}/favourite
// ============================================================

// ToggleFavourite flips the in-memory favourite flag. Favourites are a
// session overlay and are never persisted.
func (s *NewsService) ToggleFavourite(userID, articleID string) bool {
	fav := s.states.For(userID).ToggleFavourite(articleID)
	s.logger.Debug("favourite toggled",
		zap.String("user_id", userID),
		zap.String("article_id", articleID),
		zap.Bool("favourite", fav),
	)
	return fav
}

// ============================================================
// MarkRead — POST /v1/users/{userId}/articles/{articleId}/reads
// ============================================================

// MarkRead records that the user read an article and awards points on
// the first read only. Re-reading is a no-op, not an error.
func (s *NewsService) MarkRead(ctx context.Context, userID, articleID string) (awarded bool, err error) {
	ctx, span := newsTracer.Start(ctx, "NewsService.MarkRead")
	defer span.End()
	span.SetAttributes(attribute.String("article.id", articleID))

	read, err := s.store.HasRead(ctx, userID, articleID)
	if err != nil {
		return false, fmt.Errorf("check read record: %w", err)
	}
	if read {
		return false, nil
	}

	if err := s.store.InsertArticleRead(ctx, userID, articleID); err != nil {
		return false, fmt.Errorf("insert read record: %w", err)
	}

	if _, err := s.points.IncrementEngagement(ctx, userID, s.pointsArticleRead, "articles_read_count"); err != nil {
		// The read record stuck; points can be reconciled from it later.
		s.logger.Warn("failed to award article read points",
			zap.String("user_id", userID),
			zap.String("article_id", articleID),
			zap.Error(err),
		)
		return false, nil
	}

	s.metrics.RecordPointsAwarded("article_read", s.pointsArticleRead)
	s.logger.Info("article read recorded",
		zap.String("user_id", userID),
		zap.String("article_id", articleID),
		zap.Int("points", s.pointsArticleRead),
	)
	return true, nil
}

// recentArticles returns the shared article collection, cache-first.
func (s *NewsService) recentArticles(ctx context.Context) ([]domain.Article, error) {
	if articles, ok := s.cache.Get(articlesCacheKey); ok {
		s.metrics.IncrCacheHit("articles")
		return articles, nil
	}
	s.metrics.IncrCacheMiss("articles")

	articles, err := s.store.ListArticles(ctx, defaultNewsLimit)
	if err != nil {
		return nil, err
	}
	s.cache.Set(articlesCacheKey, articles)
	return articles, nil
}
