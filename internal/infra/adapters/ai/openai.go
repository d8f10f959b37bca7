package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"quillscribe/internal/domain"
	"quillscribe/internal/domain/model"
	"quillscribe/internal/domain/ports/adapter"
)

var _ adapter.EnhancementEngine = (*OpenAIEngine)(nil)

// OpenAIEngine speaks the Chat Completions API. It backs the local-llm
// provider: any OpenAI-compatible server (llama.cpp, ollama, vLLM) works
// by pointing baseURL at it; api.openai.com works the same way.
type OpenAIEngine struct {
	client openai.Client
	model  string
}

func NewOpenAIEngine(apiKey, baseURL, modelName string) (*OpenAIEngine, error) {
	if apiKey == "" && baseURL == "" {
		return nil, fmt.Errorf("openai: neither api key nor base url configured")
	}
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIEngine{
		client: openai.NewClient(opts...),
		model:  modelName,
	}, nil
}

func (o *OpenAIEngine) Enhance(ctx context.Context, req model.EnhancementRequest, progress adapter.ProgressFunc) (*model.EnhancedText, error) {
	if req.Provider != model.LocalLLM {
		return nil, fmt.Errorf("openai: provider %s: %w", req.Provider, domain.ErrInvalidSettings)
	}
	system, user := buildPrompt(req)
	if progress != nil {
		progress(10)
	}

	started := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(req.Settings.Creativity),
	})
	if err != nil {
		return nil, mapProviderError("openai", err)
	}
	if progress != nil {
		progress(90)
	}

	text := ""
	for _, c := range resp.Choices {
		if c.Message.Content != "" {
			text = c.Message.Content
			break
		}
	}
	if text == "" {
		return nil, fmt.Errorf("openai: empty response: %w", domain.ErrContentFiltered)
	}

	out := &model.EnhancedText{
		ID:               uuid.NewString(),
		Original:         req.Text,
		Enhanced:         text,
		Mode:             req.Settings.Mode,
		Provider:         req.Provider,
		ProcessingTime:   time.Since(started),
		ImprovementScore: improvementScore(req.Text, text),
		Metadata: map[string]string{
			"model":        o.model,
			"total_tokens": fmt.Sprint(resp.Usage.TotalTokens),
		},
	}
	if progress != nil {
		progress(100)
	}
	return out, nil
}

func (o *OpenAIEngine) Providers() []model.EnhancementProvider {
	return []model.EnhancementProvider{model.LocalLLM}
}

func (o *OpenAIEngine) Available(provider model.EnhancementProvider) bool {
	return provider == model.LocalLLM
}
