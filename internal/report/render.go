package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Rendered is a finished report file.
type Rendered struct {
	Data        []byte
	ContentType string
	Ext         string
}

// Renderer converts report HTML into the delivered format.
type Renderer interface {
	Render(ctx context.Context, html, footer []byte) (Rendered, error)
}

// HTMLRenderer delivers the HTML itself.
type HTMLRenderer struct{}

func (HTMLRenderer) Render(_ context.Context, html, _ []byte) (Rendered, error) {
	return Rendered{Data: html, ContentType: "text/html; charset=utf-8", Ext: "html"}, nil
}

// HTTPRenderer posts the HTML to a Gotenberg-compatible Chromium endpoint
// and returns the A4 PDF it produces.
type HTTPRenderer struct {
	endpoint string
	client   *http.Client
}

// NewHTTPRenderer targets baseURL, e.g. http://gotenberg:3000.
func NewHTTPRenderer(baseURL string, client *http.Client) *HTTPRenderer {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &HTTPRenderer{endpoint: strings.TrimRight(baseURL, "/") + "/forms/chromium/convert/html", client: client}
}

func (r *HTTPRenderer) Render(ctx context.Context, html, footer []byte) (Rendered, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	files := []struct {
		name string
		data []byte
	}{{"index.html", html}, {"footer.html", footer}}
	for _, f := range files {
		if f.data == nil {
			continue
		}
		fw, err := mw.CreateFormFile("files", f.name)
		if err != nil {
			return Rendered{}, err
		}
		if _, err := fw.Write(f.data); err != nil {
			return Rendered{}, err
		}
	}
	fields := map[string]string{
		"paperWidth":      "8.27",
		"paperHeight":     "11.7",
		"marginTop":       "0.42",
		"marginBottom":    "0.63",
		"marginLeft":      "0.42",
		"marginRight":     "0.42",
		"printBackground": "true",
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return Rendered{}, err
		}
	}
	if err := mw.Close(); err != nil {
		return Rendered{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, &body)
	if err != nil {
		return Rendered{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := r.client.Do(req)
	if err != nil {
		return Rendered{}, fmt.Errorf("pdf render: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Rendered{}, fmt.Errorf("pdf render: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Rendered{}, fmt.Errorf("pdf render (status %d): %s", resp.StatusCode, data)
	}
	return Rendered{Data: data, ContentType: "application/pdf", Ext: "pdf"}, nil
}
