package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/techchat/server/internal/agent/model"
)

//go:embed template/system_prompt.txt
var coreSystemPrompt string

const defaultAssistantName = "TechChat"

// RenderSystem renders the assistant persona through the eino prompt
// component so prompt callbacks fire. The result is fixed for the process.
func RenderSystem(ctx context.Context, config model.PromptConfig) (string, error) {
	name := strings.TrimSpace(config.AssistantName)
	if name == "" {
		name = defaultAssistantName
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(coreSystemPrompt),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"AssistantName": name,
	})
	if err != nil {
		return "", fmt.Errorf("system prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("system prompt render: empty result")
	}
	return strings.TrimSpace(msgs[0].Content), nil
}
