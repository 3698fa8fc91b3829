package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
)

var allowedImageMimeTypes = []string{"image/png", "image/jpeg", "image/webp"}

func StrPointer(str string) *string {
	if str == "" {
		return nil
	}
	return &str
}

func floatPointer(f float32) *float32 {
	return &f
}

// DetectImageMime sniffs the content type and reports whether it is an image we accept.
func DetectImageMime(content []byte) (string, bool) {
	mimeType := http.DetectContentType(content)
	return mimeType, slices.Contains(allowedImageMimeTypes, mimeType)
}

func ReadFileFromUrl(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	// presigned links must not be served from an intermediate cache
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get response: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch file, status code: %d", resp.StatusCode)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return content, nil
}
