package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"quillscribe/internal/domain"
	"quillscribe/internal/domain/model"
	"quillscribe/internal/domain/ports/adapter"
)

var _ adapter.EnhancementEngine = (*GeminiEngine)(nil)

// geminiModels maps our provider identifiers to Gemini model names.
var geminiModels = map[model.EnhancementProvider]string{
	model.GeminiPro:   "gemini-2.5-pro",
	model.GeminiFlash: "gemini-2.5-flash",
}

// GeminiEngine enhances text through the official Gemini SDK.
type GeminiEngine struct {
	client *genai.Client
	maxOut int
}

func NewGeminiEngine(ctx context.Context, apiKey, baseURL string, maxOut int) (*GeminiEngine, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	if maxOut <= 0 {
		maxOut = 8192
	}
	return &GeminiEngine{client: c, maxOut: maxOut}, nil
}

func (g *GeminiEngine) Enhance(ctx context.Context, req model.EnhancementRequest, progress adapter.ProgressFunc) (*model.EnhancedText, error) {
	modelName, ok := geminiModels[req.Provider]
	if !ok {
		return nil, fmt.Errorf("gemini: provider %s: %w", req.Provider, domain.ErrInvalidSettings)
	}
	system, user := buildPrompt(req)
	if progress != nil {
		progress(10)
	}

	started := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, modelName, genai.Text(user), &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		Temperature:       genai.Ptr(float32(req.Settings.Creativity)),
		MaxOutputTokens:   int32(g.maxOut),
	})
	if err != nil {
		return nil, mapProviderError("gemini", err)
	}
	if progress != nil {
		progress(90)
	}

	text := ""
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		text = resp.Candidates[0].Content.Parts[0].Text
	}
	if text == "" {
		// An empty candidate usually means the safety filter ate the reply.
		return nil, fmt.Errorf("gemini: empty response: %w", domain.ErrContentFiltered)
	}

	out := &model.EnhancedText{
		ID:               uuid.NewString(),
		Original:         req.Text,
		Enhanced:         text,
		Mode:             req.Settings.Mode,
		Provider:         req.Provider,
		ProcessingTime:   time.Since(started),
		ImprovementScore: improvementScore(req.Text, text),
		Metadata:         map[string]string{"model": modelName},
	}
	if resp.UsageMetadata != nil {
		out.Metadata["total_tokens"] = fmt.Sprint(resp.UsageMetadata.TotalTokenCount)
	}
	if progress != nil {
		progress(100)
	}
	return out, nil
}

func (g *GeminiEngine) Providers() []model.EnhancementProvider {
	return []model.EnhancementProvider{model.GeminiPro, model.GeminiFlash}
}

func (g *GeminiEngine) Available(provider model.EnhancementProvider) bool {
	_, ok := geminiModels[provider]
	return ok && g.client != nil
}
