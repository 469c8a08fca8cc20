// Package origin checks that a commented path actually exists on the blog
// before a thread is created for it.
package origin

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type Verifier struct {
	client *http.Client
}

func NewVerifier(timeout time.Duration) *Verifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Verifier{
		client: &http.Client{Timeout: timeout},
	}
}

// Verify issues a GET against host+path and accepts any 2xx response.
// Redirects are followed, so a trailing-slash redirect still verifies.
func (v *Verifier) Verify(ctx context.Context, host, path string) error {
	url := strings.TrimRight(host, "/") + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", url, err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}
	return nil
}
