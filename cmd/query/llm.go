package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"sdmeta/internal/database"
)

func setup_client(apiKey string) (openai.Client, error) {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL("https://api.deepseek.com/v1"),
	)
	return client, nil
}

// SummarizePrompts asks the model for a short description of the common
// themes across the matched prompts.
func SummarizePrompts(ctx context.Context, apiKey, model string, records []database.Record) (string, error) {
	client, err := setup_client(apiKey)
	if err != nil {
		return "", err
	}

	b := strings.Builder{}
	b.WriteString("Summarize the common subjects and styles across these image generation prompts in a few sentences:\n")
	for _, r := range records {
		if r.Prompt == "" {
			continue
		}
		b.WriteString("- ")
		b.WriteString(r.Prompt)
		b.WriteString("\n")
	}

	chatCompletion, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(b.String()),
		},
		Model: model,
	})
	if err != nil {
		return "", err
	}
	if len(chatCompletion.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return chatCompletion.Choices[0].Message.Content, nil
}
