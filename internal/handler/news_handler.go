package handler

import (
	"net/http"

	"github.com/outbehaving/outbehaving-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// News — /v1/users/{userId}/articles
// ============================================================

func listArticlesHandler(svc *service.NewsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{userId}/articles")
		defer span.End()

		userID := chi.URLParam(r, "userId")
		tab := r.URL.Query().Get("tab")
		span.SetAttributes(attribute.String("news.tab", tab))

		articles, err := svc.List(ctx, userID, tab)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"articles": articles})
	}
}

func toggleFavouriteHandler(svc *service.NewsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/users/{userId}/articles/{articleId}/favourite")
		defer span.End()

		userID := chi.URLParam(r, "userId")
		articleID := chi.URLParam(r, "articleId")

		fav := svc.ToggleFavourite(userID, articleID)
		writeJSON(w, http.StatusOK, map[string]any{
			"article_id":   articleID,
			"is_favourite": fav,
		})
	}
}

func markArticleReadHandler(svc *service.NewsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/users/{userId}/articles/{articleId}/reads")
		defer span.End()

		userID := chi.URLParam(r, "userId")
		articleID := chi.URLParam(r, "articleId")

		awarded, err := svc.MarkRead(ctx, userID, articleID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"article_id":     articleID,
			"points_awarded": awarded,
		})
	}
}
