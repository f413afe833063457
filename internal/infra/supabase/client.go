// Package supabase provides the backend-access gateway: generic CRUD
// against PostgREST, authentication against GoTrue, and file storage
// against the Storage API. Every call is a fallible remote call with no
// retry — a circuit breaker fails fast when the backend is unhealthy,
// and callers re-derive dependent state after each successful mutation.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/outbehaving/outbehaving-api/internal/domain"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

// errEmptyWrite signals a write that returned no representation even
// though one was requested.
var errEmptyWrite = errors.New("backend returned no representation for write")

// Client wraps HTTP calls to the Supabase REST, Auth and Storage APIs.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	logger         *zap.Logger
}

// NewClient creates a Supabase client.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, logger *zap.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		logger:         logger,
	}
}

// Query describes a generic PostgREST read: equality filters, one
// ordering column, and limit/offset.
type Query struct {
	Filters   map[string]string
	Order     string
	Ascending bool
	Limit     int
	Offset    int
}

// Encode renders the query as a PostgREST query string.
func (q Query) Encode() string {
	v := url.Values{}
	for col, val := range q.Filters {
		v.Set(col, "eq."+val)
	}
	if q.Order != "" {
		dir := "desc"
		if q.Ascending {
			dir = "asc"
		}
		v.Set("order", q.Order+"."+dir)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	return v.Encode()
}

// ============================================================
// Generic CRUD primitives
// ============================================================

// Select reads rows from a table.
func (c *Client) Select(ctx context.Context, table string, q Query) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Supabase.Select")
	defer span.End()
	span.SetAttributes(attribute.String("db.table", table))

	path := table
	if enc := q.Encode(); enc != "" {
		path = table + "?" + enc
	}
	return c.doREST(ctx, http.MethodGet, path, nil, "")
}

// Insert writes one record and returns the authoritative persisted row.
func (c *Client) Insert(ctx context.Context, table string, record any) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Supabase.Insert")
	defer span.End()
	span.SetAttributes(attribute.String("db.table", table))

	return c.doREST(ctx, http.MethodPost, table, record, "return=representation")
}

// UpdateRow patches one row by id and returns the updated row.
func (c *Client) UpdateRow(ctx context.Context, table, id string, partial any) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateRow")
	defer span.End()
	span.SetAttributes(attribute.String("db.table", table), attribute.String("db.row_id", id))

	path := table + "?id=eq." + url.QueryEscape(id)
	return c.doREST(ctx, http.MethodPatch, path, partial, "return=representation")
}

// UpdateWhere patches rows matching the query filters.
func (c *Client) UpdateWhere(ctx context.Context, table string, q Query, partial any) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateWhere")
	defer span.End()
	span.SetAttributes(attribute.String("db.table", table))

	path := table + "?" + q.Encode()
	return c.doREST(ctx, http.MethodPatch, path, partial, "return=representation")
}

// DeleteRow removes one row by id.
func (c *Client) DeleteRow(ctx context.Context, table, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteRow")
	defer span.End()
	span.SetAttributes(attribute.String("db.table", table), attribute.String("db.row_id", id))

	path := table + "?id=eq." + url.QueryEscape(id)
	_, err := c.doREST(ctx, http.MethodDelete, path, nil, "return=minimal")
	return err
}

// DeleteWhere removes rows matching the query filters.
func (c *Client) DeleteWhere(ctx context.Context, table string, q Query) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteWhere")
	defer span.End()
	span.SetAttributes(attribute.String("db.table", table))

	path := table + "?" + q.Encode()
	_, err := c.doREST(ctx, http.MethodDelete, path, nil, "return=minimal")
	return err
}

// ============================================================
// Request core
// ============================================================

// serverError marks a 5xx answer so it can count as a breaker failure
// and still classify separately from transport errors.
type serverError struct {
	status int
	body   string
}

func (e *serverError) Error() string {
	return fmt.Sprintf("supabase returned %d: %s", e.status, e.body)
}

// doREST executes an authenticated request against PostgREST and funnels
// every failure through classify — the single classification point
// required by the error-handling design.
func (c *Client) doREST(ctx context.Context, method, path string, payload any, prefer string) ([]byte, error) {
	u := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)

	var reqBody io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	status, body, err := c.execute(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, c.classify(ctx, "rest", err)
	}

	if status < 200 || status >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.String("body", string(body)),
		)
		return nil, c.classifyStatus("rest", path, status, body)
	}

	c.logger.Debug("supabase: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", status),
	)
	return body, nil
}

// execute runs the request through the circuit breaker. Transport errors
// and 5xx answers count as breaker failures; 4xx answers do not.
func (c *Client) execute(req *http.Request) (int, []byte, error) {
	type result struct {
		status int
		body   []byte
	}

	res, err := c.cb.Execute(func() (any, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return nil, &serverError{status: resp.StatusCode, body: string(body)}
		}
		return result{status: resp.StatusCode, body: body}, nil
	})
	if err != nil {
		return 0, nil, err
	}

	r := res.(result)
	return r.status, r.body, nil
}

// classify maps transport-level failures onto the domain error taxonomy.
func (c *Client) classify(ctx context.Context, component string, err error) error {
	var srv *serverError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &domain.ErrCircuitOpen{Service: "supabase/" + component}
	case errors.As(err, &srv):
		return &domain.ErrExternalService{Service: "supabase/" + component, Err: err}
	case ctx.Err() != nil:
		return &domain.ErrTimeout{Operation: component}
	default:
		return &domain.ErrNetwork{Err: err}
	}
}

// classifyStatus maps non-2xx statuses onto the domain error taxonomy.
func (c *Client) classifyStatus(component, resource string, status int, body []byte) error {
	switch status {
	case http.StatusUnauthorized:
		return &domain.ErrUnauthorized{Message: "backend rejected credentials"}
	case http.StatusForbidden:
		return &domain.ErrForbidden{Action: component + " access"}
	case http.StatusNotFound:
		return &domain.ErrNotFound{Resource: component, ID: resource}
	case http.StatusConflict:
		return &domain.ErrConflict{Message: "resource already exists"}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &domain.ErrValidation{Field: resource, Message: "rejected by backend"}
	default:
		return &domain.ErrExternalService{
			Service: "supabase/" + component,
			Err:     fmt.Errorf("status %d: %s", status, string(body)),
		}
	}
}

// decodeRows unmarshals a PostgREST array response into typed rows.
// Malformed payloads never reach a state container.
func decodeRows[T any](body []byte, table string) ([]T, error) {
	if len(body) == 0 {
		return nil, nil
	}
	var rows []T
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", table, err)
	}
	return rows, nil
}

// decodeSingle unmarshals the first row of a PostgREST array response.
func decodeSingle[T any](body []byte, table string) (*T, error) {
	rows, err := decodeRows[T](body, table)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
