// Package gemini adapts Google's Gemini embedding API to the modalvec
// TextEncoder interface.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// ErrUnavailable is returned when the encoder has no API key.
var ErrUnavailable = errors.New("gemini: api key not configured")

// DefaultModel is the embedding model used when none is specified.
const DefaultModel = "text-embedding-004"

// DefaultDim is the output dimension of DefaultModel.
const DefaultDim = 768

// Config holds Gemini encoder settings.
type Config struct {
	APIKey string
	Model  string
	// TaskType hints the API about the downstream use of the
	// embeddings (e.g. RETRIEVAL_DOCUMENT). Optional.
	TaskType string
	// Dim is the expected output dimension. Defaults to DefaultDim.
	Dim int
}

// Encoder calls the Gemini embedding API.
type Encoder struct {
	apiKey   string
	model    string
	taskType string
	dim      int
}

// New creates a Gemini-backed encoder.
func New(cfg Config) (*Encoder, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, ErrUnavailable
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	dim := cfg.Dim
	if dim <= 0 {
		dim = DefaultDim
	}
	return &Encoder{
		apiKey:   key,
		model:    model,
		taskType: cfg.TaskType,
		dim:      dim,
	}, nil
}

// Encode embeds a single text through the Gemini API.
func (e *Encoder) Encode(ctx context.Context, text string) ([]float32, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  e.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}

	var config *genai.EmbedContentConfig
	if e.taskType != "" {
		config = &genai.EmbedContentConfig{TaskType: e.taskType}
	}

	resp, err := client.Models.EmbedContent(
		ctx,
		e.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		config,
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("gemini: no embedding values returned")
	}
	return resp.Embeddings[0].Values, nil
}

// Dim returns the expected output dimension.
func (e *Encoder) Dim() int {
	return e.dim
}
