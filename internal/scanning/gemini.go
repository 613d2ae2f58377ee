package scanning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/fakturai/fakturai/internal/document"
)

// Gemini implements the Extractor interface using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Extractor instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

// ExtractInvoice sends every page image plus the extraction prompt and
// returns the candidate tree from the model response
func (g *Gemini) ExtractInvoice(ctx context.Context, images []document.EncodedImage) (map[string]any, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("at least one image is required")
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	parts := make([]genai.Part, 0, len(images)+1)
	parts = append(parts, genai.Text(invoiceExtractionPrompt))
	for _, img := range images {
		// Normalized transport images are always JPEG
		parts = append(parts, genai.ImageData("jpeg", img.Data))
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	candidate, err := parseCandidateJSON(responseText.String())
	if err != nil {
		return nil, fmt.Errorf("parsing invoice data: %w", err)
	}

	return candidate, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
