package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Aditya-GrowAI/civicvoice3/llm"

	"google.golang.org/genai"
)

// Client calls a Gemini model through the genai SDK.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient creates a Gemini client for the given model.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

func (c *Client) SourceName() string {
	return "Gemini"
}

// GenerateText sends the prompt and image as a single user turn.
// Quota errors are wrapped with llm.ErrRateLimited.
func (c *Client) GenerateText(ctx context.Context, prompt string, jpegImage []byte) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if len(jpegImage) > 0 {
		parts = append(parts, genai.NewPartFromBytes(jpegImage, "image/jpeg"))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		if IsRateLimited(err) {
			return "", fmt.Errorf("%w: %v", llm.ErrRateLimited, err)
		}
		return "", fmt.Errorf("gemini generate content failed: %w", err)
	}
	return responseText(resp), nil
}

// IsRateLimited reports whether err is a Gemini quota rejection.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return isQuotaStatus(apiErr.Code, apiErr.Status)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return isQuotaStatus(apiErrPtr.Code, apiErrPtr.Status)
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

func isQuotaStatus(code int, status string) bool {
	return code == http.StatusTooManyRequests || status == "RESOURCE_EXHAUSTED"
}

// responseText returns the text of the first candidate, falling back to its
// first text part when the aggregate text is empty.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	if text := resp.Text(); text != "" {
		return text
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && p.Text != "" {
			return p.Text
		}
	}
	return ""
}
