package avatar

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// browserUserAgent is sent on probes; some avatar CDNs answer bots with HTML.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// ProbeResult is the metadata of a HEAD response. A missing Content-Length
// is reported as 0.
type ProbeResult struct {
	Status        int
	ContentType   string
	ContentLength int64
}

// Prober checks that a URL exists without downloading its body.
// The deadline comes from ctx.
type Prober interface {
	Probe(ctx context.Context, url string) (*ProbeResult, error)
}

// HTTPProber issues HEAD requests and follows redirects.
type HTTPProber struct {
	client *http.Client
}

// NewHTTPProber uses client, or a fresh http.Client when nil. No client
// timeout is set; the resolver supplies one per strategy via ctx.
func NewHTTPProber(client *http.Client) *HTTPProber {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPProber{client: client}
}

func (p *HTTPProber) Probe(ctx context.Context, url string) (*ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, fmt.Errorf("avatar: building probe request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("avatar: probing %s: %w", url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	size := resp.ContentLength
	if size < 0 {
		size = 0
	}

	return &ProbeResult{
		Status:        resp.StatusCode,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: size,
	}, nil
}
