package balloon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxSliceBytes bounds a single slice body.
const maxSliceBytes = 32 << 20

var ErrUnexpectedStatus = errors.New("unexpected status code")

// FeedClient fetches the raw payload of one hour-indexed slice.
type FeedClient interface {
	FetchSlice(ctx context.Context, hoursAgo int) ([]byte, error)
}

// HTTPFeed reads slices from {baseURL}/{HH}.json.
type HTTPFeed struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewHTTPFeed(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPFeed {
	return &HTTPFeed{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (f *HTTPFeed) FetchSlice(ctx context.Context, hoursAgo int) ([]byte, error) {
	u := fmt.Sprintf("%s/%s.json", f.baseURL, hourLabel(hoursAgo))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSliceBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u, err)
	}

	f.logger.Debug("Fetched feed slice",
		zap.String("hour", hourLabel(hoursAgo)),
		zap.Int("bytes", len(body)))

	return body, nil
}
