package scanning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fakturai/fakturai/internal/document"
)

// Grok implements the Extractor interface using xAI's OpenAI-compatible
// chat completions API
type Grok struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewGrok creates a new Grok Extractor instance
func NewGrok(apiKey string, modelName string) (*Grok, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("xai api key is required")
	}
	if modelName == "" {
		modelName = "grok-2-vision-1212"
	}

	return &Grok{
		baseURL: "https://api.x.ai/v1",
		apiKey:  apiKey,
		model:   modelName,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// grokChatRequest represents the request body for the chat completions API
type grokChatRequest struct {
	Model       string        `json:"model"`
	Messages    []grokMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type grokMessage struct {
	Role    string        `json:"role"`
	Content []grokContent `json:"content"`
}

// grokContent is one entry of a multimodal message: either text or an
// embedded data-URL image
type grokContent struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *grokImageURL `json:"image_url,omitempty"`
}

type grokImageURL struct {
	URL string `json:"url"`
}

// grokChatResponse represents the chat completions response
type grokChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ExtractInvoice sends the page images to Grok Vision and returns the
// candidate tree from the response
func (g *Grok) ExtractInvoice(ctx context.Context, images []document.EncodedImage) (map[string]any, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("at least one image is required")
	}

	ctx, cancel := context.WithTimeout(ctx, 120*time.Second)
	defer cancel()

	content := []grokContent{
		{Type: "text", Text: invoiceExtractionPrompt},
	}
	for _, img := range images {
		content = append(content, grokContent{
			Type: "image_url",
			ImageURL: &grokImageURL{
				URL: "data:image/jpeg;base64," + img.Base64(),
			},
		})
	}

	reqBody := grokChatRequest{
		Model: g.model,
		Messages: []grokMessage{
			{Role: "user", Content: content},
		},
		// Low temperature for consistent extraction
		Temperature: 0.1,
		MaxTokens:   2000,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", g.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling xai API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("xai API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp grokChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("no response from grok")
	}

	candidate, err := parseCandidateJSON(chatResp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("parsing invoice data: %w", err)
	}

	return candidate, nil
}

// Close closes the Grok client (no-op for HTTP client)
func (g *Grok) Close() error {
	return nil
}
