package storage

import (
	"context"
	"io"
	"net/http"

	"github.com/audiogated/audiogated/internal/apierr"
	"github.com/audiogated/audiogated/internal/config"
)

// httpLoader fetches source audio over HTTP(S) with a bounded timeout,
// a redirect cap, and a max-size guard (spec §4.5).
type httpLoader struct {
	client      *http.Client
	maxBytes    int64
	maxRedirect int
}

func newHTTPLoader(cfg config.Storage) *httpLoader {
	maxRedirect := cfg.HTTPMaxRedirects
	if maxRedirect <= 0 {
		maxRedirect = 5
	}
	client := &http.Client{
		Timeout: cfg.HTTPTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirect {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
	maxBytes := cfg.MaxSourceSizeBytes
	if maxBytes <= 0 {
		maxBytes = 200 << 20
	}
	return &httpLoader{client: client, maxBytes: maxBytes, maxRedirect: maxRedirect}
}

func (h *httpLoader) Load(ctx context.Context, sourceURI string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURI, nil)
	if err != nil {
		return nil, apierr.New(apierr.KindBadRequest, "malformed source url")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindUpstream, err, "source fetch failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apierr.New(apierr.KindNotFound, "source not found")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apierr.Newf(apierr.KindUpstream, "source fetch returned status %d", resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, h.maxBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindUpstream, err, "source read failed")
	}
	if int64(len(data)) > h.maxBytes {
		return nil, apierr.New(apierr.KindPayloadTooLarge, "source exceeds max source size")
	}
	return data, nil
}
