package state_test

import (
	"testing"

	"github.com/outbehaving/outbehaving-api/internal/domain"
	"github.com/outbehaving/outbehaving-api/internal/state"
)

func newsFixture() *state.NewsState {
	s := state.NewNewsState()
	s.SetArticles([]domain.Article{
		{ID: "a1", Title: "Budgeting 101", Category: "Finance"},
		{ID: "a2", Title: "Career moves", Category: "Career"},
		{ID: "a3", Title: "Index funds", Category: "Investing"},
	})
	return s
}

func TestNewsState_ToggleFavourite(t *testing.T) {
	s := newsFixture()

	if !s.ToggleFavourite("a1") {
		t.Error("expected first toggle to favourite")
	}
	if !s.IsFavourite("a1") {
		t.Error("expected a1 favourited")
	}
	if s.ToggleFavourite("a1") {
		t.Error("expected second toggle to unfavourite")
	}
}

func TestNewsState_VisibleFiltersByTab(t *testing.T) {
	s := newsFixture()
	s.ToggleFavourite("a2")

	all := s.Visible()
	if len(all) != 3 {
		t.Fatalf("expected all 3 articles on popular tab, got %d", len(all))
	}
	if !all[1].IsFavourite || all[0].IsFavourite {
		t.Error("expected favourite overlay annotated on views")
	}

	s.SetTab(domain.NewsTabFavourites)
	favs := s.Visible()
	if len(favs) != 1 || favs[0].ID != "a2" {
		t.Fatalf("expected only a2 on favourites tab, got %d", len(favs))
	}
}

func TestNewsState_FavouritesSurviveReload(t *testing.T) {
	s := newsFixture()
	s.ToggleFavourite("a1")

	// Reload from backend: overlay is client-side, it must survive.
	s.SetArticles([]domain.Article{{ID: "a1", Title: "Budgeting 101"}})

	if !s.IsFavourite("a1") {
		t.Error("favourites overlay must survive an article reload")
	}
}

func TestNewsState_Reset(t *testing.T) {
	s := newsFixture()
	s.ToggleFavourite("a1")
	s.SetTab(domain.NewsTabFavourites)

	s.Reset()

	if s.IsFavourite("a1") {
		t.Error("expected favourites cleared after reset")
	}
	if len(s.Visible()) != 0 {
		t.Error("expected no articles after reset")
	}
}
