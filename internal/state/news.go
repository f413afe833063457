package state

import (
	"sync"

	"github.com/outbehaving/outbehaving-api/internal/domain"
)

// NewsState holds the article collection plus the user's favourites
// overlay. Favourites are a client-side set layered over backend-fetched
// articles; they are never written to the backend, and the active-tab
// filter is applied lazily when the view is read.
type NewsState struct {
	mu         sync.RWMutex
	articles   []domain.Article
	favourites map[string]struct{}
	activeTab  string
	loading    bool
	err        string
}

// NewNewsState creates an empty news container showing the popular tab.
func NewNewsState() *NewsState {
	return &NewsState{
		favourites: make(map[string]struct{}),
		activeTab:  domain.NewsTabPopular,
	}
}

// SetArticles replaces the article collection. The favourites overlay
// survives a reload.
func (s *NewsState) SetArticles(articles []domain.Article) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.articles = make([]domain.Article, len(articles))
	copy(s.articles, articles)
}

// ToggleFavourite flips membership in the favourites set and reports the
// new state.
func (s *NewsState) ToggleFavourite(articleID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.favourites[articleID]; ok {
		delete(s.favourites, articleID)
		return false
	}
	s.favourites[articleID] = struct{}{}
	return true
}

// IsFavourite reports membership in the favourites set.
func (s *NewsState) IsFavourite(articleID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.favourites[articleID]
	return ok
}

// SetTab switches the active view filter.
func (s *NewsState) SetTab(tab string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeTab = tab
}

// Visible returns the articles for the active tab, each annotated with
// the favourite overlay.
func (s *NewsState) Visible() []domain.ArticleView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ArticleView, 0, len(s.articles))
	for _, a := range s.articles {
		_, fav := s.favourites[a.ID]
		if s.activeTab == domain.NewsTabFavourites && !fav {
			continue
		}
		out = append(out, domain.ArticleView{Article: a, IsFavourite: fav})
	}
	return out
}

// SetLoading flags an in-flight load.
func (s *NewsState) SetLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = v
}

// SetError records the last load error ("" clears it).
func (s *NewsState) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = msg
}

// Reset restores the initial empty state, dropping the favourites overlay.
func (s *NewsState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.articles = nil
	s.favourites = make(map[string]struct{})
	s.activeTab = domain.NewsTabPopular
	s.loading = false
	s.err = ""
}
