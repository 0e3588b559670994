package providers

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/techchat/server/internal/agent/conversations"
	"github.com/techchat/server/internal/agent/model"
	"github.com/techchat/server/internal/agent/observers"
	errx "github.com/techchat/server/internal/core/error"
	logx "github.com/techchat/server/pkg/logger"
)

// GeminiAdapter sends the whole conversation as one rendered prompt.
type GeminiAdapter struct {
	chat      einomodel.BaseChatModel
	modelName string
}

func NewGeminiAdapter(ctx context.Context, cfg model.GeminiConfig) (*GeminiAdapter, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	cm, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:         client,
		Model:          cfg.Model,
		Temperature:    &cfg.Temperature,
		MaxTokens:      &cfg.MaxTokens,
		SafetySettings: safetySettings(),
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini chat model")
		return nil, fmt.Errorf("error creating Gemini chat model: %w", err)
	}

	return &GeminiAdapter{chat: cm, modelName: cfg.Model}, nil
}

func safetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, c := range categories {
		settings = append(settings, &genai.SafetySetting{
			Category:  c,
			Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
		})
	}
	return settings
}

func (a *GeminiAdapter) Generate(ctx context.Context, systemInstruction string, history []model.ChatTurn, message string) (string, error) {
	prompt := conversations.RenderTranscript(systemInstruction, history, message)
	ctx = observers.WithModelCallbacks(ctx, "GeminiChatModel", a.modelName)

	out, err := a.chat.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", generateError("gemini", err)
	}
	return replyText(out)
}

// replyText sanitizes the completion and rejects blank output.
func replyText(out *schema.Message) (string, error) {
	if out == nil {
		return "", errx.ErrEmptyResponse
	}
	reply := conversations.Sanitize(out.Content)
	if reply == "" {
		return "", errx.ErrEmptyResponse
	}
	return reply, nil
}

var _ Adapter = (*GeminiAdapter)(nil)
