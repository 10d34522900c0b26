package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// StorageClient handles object storage operations.
type StorageClient struct {
	client *Client
}

// From returns a handle scoped to one bucket.
func (s *StorageClient) From(bucket string) *BucketClient {
	return &BucketClient{client: s.client, bucket: bucket}
}

// BucketClient performs object operations within a single bucket.
type BucketClient struct {
	client *Client
	bucket string
}

// UploadOptions customize an upload.
type UploadOptions struct {
	ContentType  string
	CacheControl string
	Upsert       bool
}

// Upload stores data at objectPath.
func (b *BucketClient) Upload(ctx context.Context, objectPath string, data []byte, opts *UploadOptions) error {
	reqURL := fmt.Sprintf("%s/object/%s/%s", b.client.storageURL, b.bucket, escapePath(objectPath))

	headers := map[string]string{"Content-Type": "application/octet-stream"}
	if opts != nil {
		if opts.ContentType != "" {
			headers["Content-Type"] = opts.ContentType
		}
		if opts.CacheControl != "" {
			headers["Cache-Control"] = opts.CacheControl
		}
		if opts.Upsert {
			headers["x-upsert"] = "true"
		}
	}

	resp, err := b.client.do(ctx, http.MethodPost, reqURL, data, headers, b.client.serviceKey)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return parseError(resp.Body, resp.StatusCode)
	}
	return nil
}

// Download fetches the object at objectPath.
func (b *BucketClient) Download(ctx context.Context, objectPath string) ([]byte, error) {
	reqURL := fmt.Sprintf("%s/object/%s/%s", b.client.storageURL, b.bucket, escapePath(objectPath))
	resp, err := b.client.do(ctx, http.MethodGet, reqURL, nil, nil, b.client.serviceKey)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, parseError(resp.Body, resp.StatusCode)
	}
	return resp.Body, nil
}

// Delete removes the objects at the given paths.
func (b *BucketClient) Delete(ctx context.Context, objectPaths []string) error {
	reqURL := fmt.Sprintf("%s/object/%s", b.client.storageURL, b.bucket)
	body, err := json.Marshal(map[string][]string{"prefixes": objectPaths})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	resp, err := b.client.do(ctx, http.MethodDelete, reqURL, body, nil, b.client.serviceKey)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return parseError(resp.Body, resp.StatusCode)
	}
	return nil
}

// PublicURL returns the public URL for an object in a public bucket.
func (b *BucketClient) PublicURL(objectPath string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", b.client.storageURL, b.bucket, escapePath(objectPath))
}

// CreateSignedURL returns a URL granting access for expiresIn seconds.
func (b *BucketClient) CreateSignedURL(ctx context.Context, objectPath string, expiresIn int) (string, error) {
	reqURL := fmt.Sprintf("%s/object/sign/%s/%s", b.client.storageURL, b.bucket, escapePath(objectPath))
	body, err := json.Marshal(map[string]int{"expiresIn": expiresIn})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	resp, err := b.client.do(ctx, http.MethodPost, reqURL, body, nil, b.client.serviceKey)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", parseError(resp.Body, resp.StatusCode)
	}
	var result struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	return b.client.baseURL + "/storage/v1" + result.SignedURL, nil
}

// escapePath escapes each segment while keeping the separators.
func escapePath(p string) string {
	return (&url.URL{Path: p}).EscapedPath()
}
