package supabase_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/outbehaving/outbehaving-api/internal/domain"
	"github.com/outbehaving/outbehaving-api/internal/infra/resilience"
	"github.com/outbehaving/outbehaving-api/internal/infra/supabase"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.Handler) (*supabase.Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := supabase.NewClient(
		&http.Client{Timeout: 2 * time.Second},
		server.URL,
		"anon-key",
		"service-key",
		resilience.NewCircuitBreaker("test"),
		zap.NewNop(),
	)
	return client, server
}

func TestQuery_Encode(t *testing.T) {
	q := supabase.Query{
		Filters:   map[string]string{"user_id": "u1"},
		Order:     "created_at",
		Ascending: false,
		Limit:     20,
	}

	enc := q.Encode()
	for _, want := range []string{"user_id=eq.u1", "order=created_at.desc", "limit=20"} {
		if !strings.Contains(enc, want) {
			t.Errorf("expected %q in encoded query, got %q", want, enc)
		}
	}

	if got := (supabase.Query{}).Encode(); got != "" {
		t.Errorf("expected empty encoding for zero query, got %q", got)
	}
}

func TestListGoals_QuarantinesMalformedRows(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// Second row has no id, third has a negative target.
		w.Write([]byte(`[
			{"id":"g1","user_id":"u1","name":"Holiday","target_amount":200,"saved_amount":50},
			{"id":"","user_id":"u1","name":"Broken","target_amount":100,"saved_amount":0},
			{"id":"g3","user_id":"u1","name":"Bad","target_amount":-5,"saved_amount":0}
		]`))
	}))

	goals, err := client.ListGoals(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(goals) != 1 {
		t.Fatalf("expected 1 valid goal after quarantine, got %d", len(goals))
	}
	if goals[0].ID != "g1" {
		t.Errorf("expected g1, got %s", goals[0].ID)
	}
}

func TestGetGoal_NotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))

	_, err := client.GetGoal(context.Background(), "missing")

	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSelect_ClassifiesServerError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.Select(context.Background(), "goals", supabase.Query{})

	var external *domain.ErrExternalService
	if !errors.As(err, &external) {
		t.Fatalf("expected ErrExternalService for 5xx, got %v", err)
	}
}

func TestSelect_ClassifiesUnauthorized(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.Select(context.Background(), "goals", supabase.Query{})

	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected ErrUnauthorized for 401, got %v", err)
	}
}

func TestSelect_ClassifiesNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // connection refused from here on

	client := supabase.NewClient(
		&http.Client{Timeout: 500 * time.Millisecond},
		server.URL,
		"anon-key",
		"service-key",
		resilience.NewCircuitBreaker("test-down"),
		zap.NewNop(),
	)

	_, err := client.Select(context.Background(), "goals", supabase.Query{})

	var network *domain.ErrNetwork
	if !errors.As(err, &network) {
		t.Fatalf("expected ErrNetwork for refused connection, got %v", err)
	}
}

func TestCircuitBreaker_OpensAfterRepeatedFailures(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client := supabase.NewClient(
		&http.Client{Timeout: 200 * time.Millisecond},
		server.URL,
		"anon-key",
		"service-key",
		resilience.NewCircuitBreaker("test-open"),
		zap.NewNop(),
	)

	// Hammer the dead backend until the breaker trips.
	var last error
	for i := 0; i < 10; i++ {
		_, last = client.Select(context.Background(), "goals", supabase.Query{})
	}

	var open *domain.ErrCircuitOpen
	if !errors.As(last, &open) {
		t.Fatalf("expected ErrCircuitOpen after repeated failures, got %v", last)
	}
}

func TestInsert_SendsRepresentationHeader(t *testing.T) {
	var gotPrefer, gotAuth string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPrefer = r.Header.Get("Prefer")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[{"id":"g9","user_id":"u1","name":"New","target_amount":100,"saved_amount":0}]`))
	}))

	goal, err := client.CreateGoal(context.Background(), "u1", domain.GoalInput{Name: "New", TargetAmount: 100})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if goal.ID != "g9" {
		t.Errorf("expected persisted row back, got %+v", goal)
	}
	if gotPrefer != "return=representation" {
		t.Errorf("expected Prefer return=representation, got %q", gotPrefer)
	}
	if gotAuth != "Bearer service-key" {
		t.Errorf("expected service role bearer, got %q", gotAuth)
	}
}
