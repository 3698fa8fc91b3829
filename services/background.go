package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

type BackgroundRemover interface {
	RemoveBackground(ctx context.Context, image []byte) ([]byte, error)
}

// HTTPBackgroundRemover posts the raw image to a removal service that answers with a PNG.
type HTTPBackgroundRemover struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTPBackgroundRemover(endpoint, apiKey string) *HTTPBackgroundRemover {
	retrying := retryablehttp.NewClient()
	retrying.RetryMax = 3
	retrying.RetryWaitMin = 500 * time.Millisecond
	retrying.RetryWaitMax = 5 * time.Second
	retrying.HTTPClient.Timeout = 60 * time.Second
	retrying.Logger = nil

	return &HTTPBackgroundRemover{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   retrying.StandardClient(),
	}
}

func (r *HTTPBackgroundRemover) RemoveBackground(ctx context.Context, image []byte) ([]byte, error) {
	mimeType, ok := DetectImageMime(image)
	if !ok {
		return nil, fmt.Errorf("unsupported file type: %s", mimeType)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("create background removal request: %w", err)
	}
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("Accept", "image/png")
	if r.apiKey != "" {
		req.Header.Set("X-Api-Key", r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("background removal request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read background removal response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("background removal failed with status %d", resp.StatusCode)
	}
	if mimeType, ok := DetectImageMime(body); !ok {
		return nil, fmt.Errorf("background removal returned %s", mimeType)
	}
	return body, nil
}

// LocalBackgroundWhitener is used when no removal service is configured.
// A positive BlurSigma switches to the blurred-mask variant above Upper.
type LocalBackgroundWhitener struct {
	Lower     uint8
	Upper     uint8
	Protect   float64
	BlurSigma float64
}

func DefaultBackgroundWhitener() LocalBackgroundWhitener {
	return LocalBackgroundWhitener{Lower: 200, Upper: 235, Protect: 0.4}
}

func (w LocalBackgroundWhitener) RemoveBackground(ctx context.Context, image []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if w.BlurSigma > 0 {
		return WhitenBackgroundSmooth(image, w.Upper, w.BlurSigma)
	}
	return WhitenBackgroundFeathered(image, w.Lower, w.Upper, w.Protect)
}
