// Package gemini implements llm.Provider against the Generative Language
// REST API, plus the image and long-running video generation calls used for
// pictograms and measure videos.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/efebarandurmaz/anzen/internal/llm"
)

const (
	defaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel      = "gemini-2.5-flash"
	defaultEmbedModel = "gemini-embedding-001"
	defaultVideoModel = "veo-3.0-generate-preview"
	defaultImageModel = "imagen-4.0-generate-001"
)

// Config configures a Client.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	EmbedModel string
	EmbedDims  int
	VideoModel string
	ImageModel string
}

// Client talks to the Gemini REST API.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a Gemini provider. Empty fields take the package defaults.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = defaultEmbedModel
	}
	if cfg.VideoModel == "" {
		cfg.VideoModel = defaultVideoModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = defaultImageModel
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: 300 * time.Second}}
}

func (c *Client) Name() string { return "gemini" }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

func (c *Client) Complete(ctx context.Context, prompt *llm.Prompt, opts *llm.RequestOptions) (*llm.Response, error) {
	body := map[string]any{}
	if prompt.SystemPrompt != "" {
		body["systemInstruction"] = content{Parts: []part{{Text: prompt.SystemPrompt}}}
	}
	contents := make([]content, 0, len(prompt.Messages))
	for _, m := range prompt.Messages {
		role := "user"
		if m.Role == llm.RoleAssistant {
			role = "model"
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: m.Content}}})
	}
	body["contents"] = contents

	if opts != nil {
		gen := map[string]any{}
		if opts.MaxTokens != nil {
			gen["maxOutputTokens"] = *opts.MaxTokens
		}
		if opts.Temperature != nil {
			gen["temperature"] = *opts.Temperature
		}
		if opts.TopP != nil {
			gen["topP"] = *opts.TopP
		}
		if len(opts.StopSeqs) > 0 {
			gen["stopSequences"] = opts.StopSeqs
		}
		if len(gen) > 0 {
			body["generationConfig"] = gen
		}
	}

	var result struct {
		Candidates []struct {
			Content      content `json:"content"`
			FinishReason string  `json:"finishReason"`
		} `json:"candidates"`
		UsageMetadata struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
		} `json:"usageMetadata"`
		ModelVersion string `json:"modelVersion"`
	}
	if err := c.do(ctx, http.MethodPost, "/models/"+c.cfg.Model+":generateContent", body, &result); err != nil {
		return nil, err
	}

	out := &llm.Response{
		Model:        result.ModelVersion,
		InputTokens:  result.UsageMetadata.PromptTokenCount,
		OutputTokens: result.UsageMetadata.CandidatesTokenCount,
	}
	if len(result.Candidates) > 0 {
		var sb strings.Builder
		for _, p := range result.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
		out.Content = sb.String()
		out.StopReason = result.Candidates[0].FinishReason
	}
	return out, nil
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	model := "models/" + c.cfg.EmbedModel
	reqs := make([]map[string]any, len(texts))
	for i, t := range texts {
		r := map[string]any{
			"model":   model,
			"content": content{Parts: []part{{Text: t}}},
		}
		if c.cfg.EmbedDims > 0 {
			r["outputDimensionality"] = c.cfg.EmbedDims
		}
		reqs[i] = r
	}

	var result struct {
		Embeddings []struct {
			Values []float32 `json:"values"`
		} `json:"embeddings"`
	}
	if err := c.do(ctx, http.MethodPost, "/"+model+":batchEmbedContents", map[string]any{"requests": reqs}, &result); err != nil {
		return nil, err
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embed: got %d vectors for %d inputs", len(result.Embeddings), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, e := range result.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}

// StartVideo submits a predictLongRunning request and returns the operation
// name to poll.
func (c *Client) StartVideo(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"instances":  []map[string]string{{"prompt": prompt}},
		"parameters": map[string]any{"aspectRatio": "16:9"},
	}
	var op struct {
		Name string `json:"name"`
	}
	if err := c.do(ctx, http.MethodPost, "/models/"+c.cfg.VideoModel+":predictLongRunning", body, &op); err != nil {
		return "", err
	}
	if op.Name == "" {
		return "", fmt.Errorf("gemini video: operation has no name")
	}
	return op.Name, nil
}

// CheckVideo fetches the operation state. A finished operation that carries
// an error is returned as an error.
func (c *Client) CheckVideo(ctx context.Context, operation string) (llm.VideoStatus, error) {
	var op struct {
		Done  bool `json:"done"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		Response struct {
			GenerateVideoResponse struct {
				GeneratedSamples []struct {
					Video struct {
						URI string `json:"uri"`
					} `json:"video"`
				} `json:"generatedSamples"`
			} `json:"generateVideoResponse"`
		} `json:"response"`
	}
	if err := c.do(ctx, http.MethodGet, "/"+strings.TrimPrefix(operation, "/"), nil, &op); err != nil {
		return llm.VideoStatus{}, err
	}
	if !op.Done {
		return llm.VideoStatus{}, nil
	}
	if op.Error != nil {
		return llm.VideoStatus{Done: true}, fmt.Errorf("gemini video: operation failed (%d): %s", op.Error.Code, op.Error.Message)
	}
	samples := op.Response.GenerateVideoResponse.GeneratedSamples
	if len(samples) == 0 || samples[0].Video.URI == "" {
		return llm.VideoStatus{Done: true}, fmt.Errorf("gemini video: operation finished without a video")
	}
	return llm.VideoStatus{Done: true, URI: samples[0].Video.URI}, nil
}

// GenerateImage renders one image for prompt and returns its bytes.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	body := map[string]any{
		"instances":  []map[string]string{{"prompt": prompt}},
		"parameters": map[string]any{"sampleCount": 1},
	}
	var result struct {
		Predictions []struct {
			BytesBase64Encoded []byte `json:"bytesBase64Encoded"`
		} `json:"predictions"`
	}
	if err := c.do(ctx, http.MethodPost, "/models/"+c.cfg.ImageModel+":predict", body, &result); err != nil {
		return nil, err
	}
	if len(result.Predictions) == 0 || len(result.Predictions[0].BytesBase64Encoded) == 0 {
		return nil, fmt.Errorf("gemini image: no image returned")
	}
	return result.Predictions[0].BytesBase64Encoded, nil
}

// DownloadVideo fetches the bytes behind a generated video URI. The URI is
// served by the same API and needs the key header.
func (c *Client) DownloadVideo(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini video download (status %d): %s", resp.StatusCode, data)
	}
	return data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gemini API error (status %d): %s", resp.StatusCode, respBody)
	}
	return json.Unmarshal(respBody, out)
}

var (
	_ llm.Provider       = (*Client)(nil)
	_ llm.VideoGenerator = (*Client)(nil)
	_ llm.ImageGenerator = (*Client)(nil)
)
