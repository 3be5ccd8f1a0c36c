package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"

	"go.vrtcore.dev/internal/skerr"
	"go.vrtcore.dev/vrt/imageproc"
)

// maxImageSide is the longer-side pixel cap spec.md §6 requires: any image
// above it is downscaled bilinearly, preserving aspect ratio, before being
// base64-encoded into the request.
const maxImageSide = 7500

// HTTPProvider implements Provider against an OpenAI-Chat-Completions-shaped
// endpoint (also the shape OpenRouter and most self-hosted gateways accept),
// which covers every concrete backend spec.md §6 names without one provider
// struct per SDK.
type HTTPProvider struct {
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
	MaxRetries uint64
}

// NewHTTPProvider returns a provider posting to endpoint with apiKey as a
// bearer token.
func NewHTTPProvider(endpoint, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		Endpoint:   endpoint,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 45 * time.Second},
		MaxRetries: 3,
	}
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []chatContent `json:"content"`
}

type chatContent struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Analyze encodes the available images, sends one chat-completion request,
// and retries transient failures (5xx, network errors) with exponential
// backoff, up to MaxRetries retries after the first attempt.
func (p *HTTPProvider) Analyze(ctx context.Context, req AnalyzeRequest) (AnalyzeResponse, error) {
	prompt := req.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}

	content := []chatContent{{Type: "text", Text: prompt}}
	for _, path := range []string{req.BaselinePath, req.TestPath, req.DiffPath} {
		if path == "" {
			continue
		}
		dataURL, err := encodeImageDataURL(path)
		if err != nil {
			return AnalyzeResponse{}, skerr.Wrapf(err, "encoding %s for AI triage", path)
		}
		content = append(content, chatContent{Type: "image_url", ImageURL: &chatImageURL{URL: dataURL}})
	}

	body, err := json.Marshal(chatRequest{Model: req.Model, Messages: []chatMessage{{Role: "user", Content: content}}})
	if err != nil {
		return AnalyzeResponse{}, skerr.Wrap(err)
	}

	var result AnalyzeResponse
	operation := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if p.APIKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)
		}

		resp, err := p.HTTPClient.Do(httpReq)
		if err != nil {
			return err // network errors are retryable
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("AI provider returned %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("AI provider returned %d", resp.StatusCode))
		}

		var parsed chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return backoff.Permanent(skerr.Wrapf(err, "decoding AI provider response"))
		}
		if len(parsed.Choices) == 0 {
			return backoff.Permanent(skerr.Fmt("AI provider returned no choices"))
		}
		result = AnalyzeResponse{Text: parsed.Choices[0].Message.Content, TokensUsed: parsed.Usage.TotalTokens}
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), p.retries())
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return AnalyzeResponse{}, skerr.Wrapf(err, "calling AI provider")
	}
	return result, nil
}

func (p *HTTPProvider) retries() uint64 {
	if p.MaxRetries > 0 {
		return p.MaxRetries
	}
	return 3
}

func encodeImageDataURL(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return "", err
	}
	scaled := imageproc.ResizeBilinearAspect(imageproc.ToNRGBA(img), maxImageSide)

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
