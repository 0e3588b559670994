package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	agentmodel "github.com/techchat/server/internal/agent/model"
	logx "github.com/techchat/server/pkg/logger"
)

// newModelHandler logs chat model calls and their token cost.
func newModelHandler(modelName string) *callbackHelper.ModelCallbackHandler {
	return &callbackHelper.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			if input == nil {
				return ctx
			}
			logx.Debug().
				Str("component", info.Name).
				Str("model", modelName).
				Int("messages", len(input.Messages)).
				Int("input_chars", contentLength(input.Messages)).
				Msg("provider call start")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			if output == nil || output.Message == nil {
				return ctx
			}
			ev := logx.Debug().
				Str("component", info.Name).
				Str("model", modelName).
				Int("output_chars", len(output.Message.Content))
			if meta := output.Message.ResponseMeta; meta != nil && meta.Usage != nil {
				inC, outC, totalC := agentmodel.ComputeCost(meta.Usage, agentmodel.ResolvePricing(modelName))
				ev = ev.
					Int("prompt_tokens", meta.Usage.PromptTokens).
					Int("completion_tokens", meta.Usage.CompletionTokens).
					Int("total_tokens", meta.Usage.TotalTokens).
					Float64("input_cost_usd", inC).
					Float64("output_cost_usd", outC).
					Float64("total_cost_usd", totalC)
			}
			if meta := output.Message.ResponseMeta; meta != nil && meta.FinishReason != "" {
				ev = ev.Str("finish_reason", meta.FinishReason)
			}
			ev.Msg("provider call end")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Warn().Err(err).Str("component", info.Name).Str("model", modelName).Msg("provider call failed")
			return ctx
		},
	}
}

// WithModelCallbacks attaches the logging handler to ctx for one direct
// chat model call made outside a compose graph.
func WithModelCallbacks(ctx context.Context, name, modelName string) context.Context {
	handler := callbackHelper.NewHandlerHelper().
		ChatModel(newModelHandler(modelName)).
		Handler()
	return einocb.InitCallbacks(ctx, &einocb.RunInfo{
		Name:      name,
		Type:      name,
		Component: components.ComponentOfChatModel,
	}, handler)
}

func contentLength(msgs []*schema.Message) int {
	n := 0
	for _, m := range msgs {
		if m != nil {
			n += len(m.Content)
		}
	}
	return n
}
