package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// ============================================================
// File storage — buckets addressed by path
// ============================================================

// Upload writes an object into a bucket. Existing objects are not
// overwritten (x-upsert=false), matching the avatar-upload flow.
func (c *Client) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) error {
	ctx, span := tracer.Start(ctx, "Supabase.StorageUpload")
	defer span.End()

	u := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Cache-Control", "3600")
	req.Header.Set("x-upsert", "false")

	status, body, err := c.execute(req)
	if err != nil {
		c.logger.Error("supabase: storage upload failed",
			zap.String("bucket", bucket),
			zap.String("path", path),
			zap.Error(err),
		)
		return c.classify(ctx, "storage", err)
	}
	if status < 200 || status >= 300 {
		c.logger.Warn("supabase: storage upload non-2xx",
			zap.String("bucket", bucket),
			zap.String("path", path),
			zap.Int("status", status),
			zap.String("body", string(body)),
		)
		return c.classifyStatus("storage", bucket+"/"+path, status, body)
	}
	return nil
}

// Download reads an object from a bucket.
func (c *Client) Download(ctx context.Context, bucket, path string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Supabase.StorageDownload")
	defer span.End()

	u := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))

	status, body, err := c.execute(req)
	if err != nil {
		return nil, c.classify(ctx, "storage", err)
	}
	if status < 200 || status >= 300 {
		return nil, c.classifyStatus("storage", bucket+"/"+path, status, body)
	}
	return body, nil
}

// Remove deletes an object from a bucket.
func (c *Client) Remove(ctx context.Context, bucket, path string) error {
	ctx, span := tracer.Start(ctx, "Supabase.StorageRemove")
	defer span.End()

	u := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))

	status, body, err := c.execute(req)
	if err != nil {
		return c.classify(ctx, "storage", err)
	}
	if status < 200 || status >= 300 {
		return c.classifyStatus("storage", bucket+"/"+path, status, body)
	}
	return nil
}

// PublicURL derives the deterministic public URL for an object.
func (c *Client) PublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, bucket, path)
}

// List returns object names under a prefix.
func (c *Client) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.StorageList")
	defer span.End()

	payload, err := json.Marshal(map[string]any{
		"prefix": prefix,
		"limit":  100,
	})
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/storage/v1/object/list/%s", c.baseURL, bucket)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")

	status, body, err := c.execute(req)
	if err != nil {
		return nil, c.classify(ctx, "storage", err)
	}
	if status < 200 || status >= 300 {
		return nil, c.classifyStatus("storage", bucket, status, body)
	}

	var objects []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &objects); err != nil {
		return nil, fmt.Errorf("decode storage list: %w", err)
	}

	names := make([]string, 0, len(objects))
	for _, o := range objects {
		names = append(names, o.Name)
	}
	return names, nil
}
