package main

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/spf13/viper"

	"github.com/convoflow/convoflow/internal/llm"
)

// newChatModel builds the configured provider's chat model.
// Config keys: provider (openai|anthropic), api_key, model, base_url.
func newChatModel(ctx context.Context) (model.BaseChatModel, error) {
	provider := viper.GetString("provider")
	apiKey := viper.GetString("api_key")
	modelName := viper.GetString("model")
	if modelName == "" {
		return nil, fmt.Errorf("no model configured (set model in config or CONVOFLOW_MODEL)")
	}

	switch provider {
	case "", "openai":
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:  apiKey,
			Model:   modelName,
			BaseURL: viper.GetString("base_url"),
		})
	case "anthropic":
		return llm.NewAnthropicChatModel(apiKey, modelName), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}
