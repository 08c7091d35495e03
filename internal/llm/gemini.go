package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const geminiRoleModel = "model"

type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// Generate sends the trailing user message through a chat session seeded with
// the preceding turns; system messages become the model's system instruction.
func (c *GeminiClient) Generate(ctx context.Context, messages []Message) (Response, error) {
	system, history, query, err := splitForGemini(messages)
	if err != nil {
		return Response{}, err
	}

	model := c.client.GenerativeModel(c.model)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	cs := model.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, genai.Text(query))
	if err != nil {
		return Response{}, fmt.Errorf("Gemini API error: %w", err)
	}

	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		return Response{}, ErrEmptyResponse
	}
	out := Response{Content: text, Model: c.model}
	if resp.UsageMetadata != nil {
		out.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		out.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}

func splitForGemini(messages []Message) (string, []*genai.Content, string, error) {
	if len(messages) == 0 || messages[len(messages)-1].Role != RoleUser {
		return "", nil, "", fmt.Errorf("gemini: conversation must end with a user message")
	}

	var system []string
	var history []*genai.Content
	for _, m := range messages[:len(messages)-1] {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			history = append(history, &genai.Content{Role: geminiRoleModel, Parts: []genai.Part{genai.Text(m.Content)}})
		default:
			history = append(history, &genai.Content{Role: RoleUser, Parts: []genai.Part{genai.Text(m.Content)}})
		}
	}
	return strings.Join(system, "\n\n"), history, messages[len(messages)-1].Content, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
