package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/egov_portal/backend/internal/models"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiBackend calls the Gemini generateContent REST API.
type GeminiBackend struct {
	APIKey  string
	Model   string
	BaseURL string
	Client  *http.Client
}

type RateLimitError struct {
	RetryAfter time.Duration
}

func (r RateLimitError) Error() string {
	if r.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", r.RetryAfter)
	}
	return "rate limited"
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *GeminiBackend) Classify(ctx context.Context, prompt string) (string, error) {
	req := geminiRequest{
		Contents:         []geminiContent{{Role: models.RoleUser, Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: &geminiGenerationConfig{ResponseMimeType: "application/json"},
	}
	return g.generate(ctx, req)
}

func (g *GeminiBackend) Generate(ctx context.Context, prompt string) (string, error) {
	req := geminiRequest{
		Contents: []geminiContent{{Role: models.RoleUser, Parts: []geminiPart{{Text: prompt}}}},
	}
	return g.generate(ctx, req)
}

func (g *GeminiBackend) Converse(ctx context.Context, cr ConverseRequest) (string, error) {
	req := geminiRequest{}
	if strings.TrimSpace(cr.System) != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: cr.System}}}
	}
	for _, turn := range cr.History {
		req.Contents = append(req.Contents, geminiContent{
			Role:  turn.Role,
			Parts: []geminiPart{{Text: turn.Text}},
		})
	}
	parts := []geminiPart{{Text: cr.Message}}
	if cr.Attachment != nil {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: cr.Attachment.MimeType,
			Data:     cr.Attachment.Data,
		}})
	}
	req.Contents = append(req.Contents, geminiContent{Role: models.RoleUser, Parts: parts})
	return g.generate(ctx, req)
}

func (g *GeminiBackend) generate(ctx context.Context, payload geminiRequest) (string, error) {
	if strings.TrimSpace(g.APIKey) == "" || strings.TrimSpace(g.Model) == "" {
		return "", ErrNotConfigured
	}
	client := g.Client
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}
	baseURL := g.BaseURL
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", strings.TrimRight(baseURL, "/"), normalizeModel(g.Model), g.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("gemini request timed out: %w", err)
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "", fmt.Errorf("gemini request timed out: %w", err)
		}
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if resp.StatusCode == http.StatusTooManyRequests {
			return "", RateLimitError{RetryAfter: extractRetryAfter(errBody)}
		}
		if msg := extractErrorMessage(errBody); msg != "" {
			return "", fmt.Errorf("gemini api error: %s: %s", resp.Status, msg)
		}
		return "", fmt.Errorf("gemini api error: %s", resp.Status)
	}

	var res geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", err
	}
	if len(res.Candidates) == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}
	var sb strings.Builder
	for _, p := range res.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("empty response from gemini")
	}
	return sb.String(), nil
}

func normalizeModel(model string) string {
	model = strings.TrimSpace(model)
	return strings.TrimPrefix(model, "models/")
}

func extractErrorMessage(errBody map[string]any) string {
	errObj, ok := errBody["error"].(map[string]any)
	if !ok {
		return ""
	}
	msg, _ := errObj["message"].(string)
	return msg
}

func extractRetryAfter(errBody map[string]any) time.Duration {
	errObj, ok := errBody["error"].(map[string]any)
	if !ok {
		return 0
	}
	details, ok := errObj["details"].([]any)
	if !ok {
		return 0
	}
	for _, d := range details {
		m, ok := d.(map[string]any)
		if !ok {
			continue
		}
		if t, ok := m["@type"].(string); ok && strings.Contains(t, "RetryInfo") {
			if s, ok := m["retryDelay"].(string); ok {
				if dur, err := time.ParseDuration(s); err == nil {
					return dur
				}
			}
		}
	}
	return 0
}
