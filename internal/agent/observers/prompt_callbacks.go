package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/prompt"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/techchat/server/pkg/logger"
)

func newPromptHandler() *callbackHelper.PromptCallbackHandler {
	return &callbackHelper.PromptCallbackHandler{
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *prompt.CallbackOutput) context.Context {
			if output != nil && len(output.Result) > 0 && output.Result[0] != nil {
				logx.Debug().
					Str("component", info.Name).
					Int("chars", len(output.Result[0].Content)).
					Msg("prompt rendered")
			}
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Error().Err(err).Str("component", info.Name).Msg("prompt render failed")
			return ctx
		},
	}
}

// WithPromptCallbacks attaches prompt lifecycle logging to ctx.
func WithPromptCallbacks(ctx context.Context, name string) context.Context {
	handler := callbackHelper.NewHandlerHelper().
		Prompt(newPromptHandler()).
		Handler()
	return einocb.InitCallbacks(ctx, &einocb.RunInfo{
		Name:      name,
		Component: components.ComponentOfPrompt,
	}, handler)
}
