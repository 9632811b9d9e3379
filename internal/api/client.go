package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/samber/do"

	"imagen/internal/config"
	"imagen/internal/log"
)

type Client struct {
	HTTP    *http.Client
	BaseURL string
	Key     string
}

func NewClient(i *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[config.Config](i)
	return &Client{
		HTTP:    do.MustInvoke[*http.Client](i),
		BaseURL: cfg.BaseURL,
		Key:     cfg.APIKey,
	}, nil
}

// Generate posts a text-to-image request to the generations endpoint and
// returns the raw response. No retries on any failure.
func (c *Client) Generate(ctx context.Context, req GenerationRequest) (*http.Response, error) {
	url := c.BaseURL + "/generations"
	log := log.FromContextOrDiscard(ctx).WithGroup("api").With("url", url)
	log.Debug("posting generation request")

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.Key)

	return c.HTTP.Do(httpReq)
}

// Edit posts an edit request as a multipart form. A missing source image or
// mask surfaces as a *ValidationError before any network traffic.
func (c *Client) Edit(ctx context.Context, req EditRequest) (*http.Response, error) {
	url := c.BaseURL + "/edits"
	log := log.FromContextOrDiscard(ctx).WithGroup("api").With("url", url)
	log.Debug("posting edit request", "images", len(req.Images))

	form, contentType, err := req.form()
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, form)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Authorization", "Bearer "+c.Key)

	return c.HTTP.Do(httpReq)
}
