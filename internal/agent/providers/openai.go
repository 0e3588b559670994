package providers

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"

	"github.com/techchat/server/internal/agent/conversations"
	"github.com/techchat/server/internal/agent/model"
	"github.com/techchat/server/internal/agent/observers"
	logx "github.com/techchat/server/pkg/logger"
)

// OpenAIAdapter sends role-tagged messages to the chat completion API.
type OpenAIAdapter struct {
	chat      einomodel.BaseChatModel
	modelName string
}

func NewOpenAIAdapter(ctx context.Context, cfg model.OpenAIConfig) (*OpenAIAdapter, error) {
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: &cfg.Temperature,
		MaxTokens:   &cfg.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating OpenAI chat model")
		return nil, fmt.Errorf("error creating OpenAI chat model: %w", err)
	}
	return &OpenAIAdapter{chat: cm, modelName: cfg.Model}, nil
}

func (a *OpenAIAdapter) Generate(ctx context.Context, systemInstruction string, history []model.ChatTurn, message string) (string, error) {
	msgs := conversations.ToMessages(systemInstruction, history, message)
	ctx = observers.WithModelCallbacks(ctx, "OpenAIChatModel", a.modelName)

	out, err := a.chat.Generate(ctx, msgs)
	if err != nil {
		return "", generateError("openai", err)
	}
	return replyText(out)
}

var _ Adapter = (*OpenAIAdapter)(nil)
