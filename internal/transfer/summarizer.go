package transfer

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/liushuangls/go-anthropic/v2"
	"github.com/sashabaranov/go-openai"

	"github.com/user/bookmarksync/internal/config"
)

// SummaryResult contains the LLM-generated summary and keywords
type SummaryResult struct {
	Summary     string
	Keywords    string
	RawResponse string
}

// Text renders the result as it is stored in the destination.
func (r *SummaryResult) Text() string {
	if r == nil {
		return ""
	}
	if r.Keywords == "" {
		return r.Summary
	}
	if r.Summary == "" {
		return "Keywords: " + r.Keywords
	}
	return r.Summary + "\nKeywords: " + r.Keywords
}

// LLMSummarizer generates summaries using LLM
type LLMSummarizer struct {
	complete func(ctx context.Context, prompt string) (string, error)
}

const summaryPrompt = `Analyze this saved social media post and provide:
1. A concise 1 sentence summary of what it is about
2. 3-5 relevant keywords separated by commas

Format your response exactly as:
SUMMARY: <your summary>
KEYWORDS: <keyword1>, <keyword2>, <keyword3>

Post by @%s:
%s`

// NewSummarizer builds a summarizer for the configured provider. API keys
// come from ANTHROPIC_API_KEY, OPENAI_API_KEY or OPENROUTER_API_KEY.
func NewSummarizer(cfg config.LLMConfig) (*LLMSummarizer, error) {
	switch cfg.Provider {
	case "anthropic":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, errors.New("ANTHROPIC_API_KEY not set")
		}
		var opts []anthropic.ClientOption
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		client := anthropic.NewClient(apiKey, opts...)
		return &LLMSummarizer{complete: anthropicCompletion(client, cfg.Model)}, nil

	case "openai", "openrouter":
		var apiKey, baseURL string
		if cfg.Provider == "openrouter" {
			apiKey = os.Getenv("OPENROUTER_API_KEY")
			baseURL = cfg.BaseURL
			if baseURL == "" {
				baseURL = "https://openrouter.ai/api/v1"
			}
		} else {
			apiKey = os.Getenv("OPENAI_API_KEY")
			baseURL = cfg.BaseURL
		}
		if apiKey == "" {
			return nil, errors.Newf("API key not set for provider %s", cfg.Provider)
		}

		clientConfig := openai.DefaultConfig(apiKey)
		if baseURL != "" {
			clientConfig.BaseURL = baseURL
		}
		client := openai.NewClientWithConfig(clientConfig)
		return &LLMSummarizer{complete: openAICompletion(client, cfg.Model)}, nil

	default:
		return nil, errors.Newf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// Summarize asks the model for a summary of one post.
func (s *LLMSummarizer) Summarize(ctx context.Context, author, content string) (*SummaryResult, error) {
	// Truncate content for LLM
	const maxContentLen = 10000
	if len(content) > maxContentLen {
		content = content[:maxContentLen]
	}

	response, err := s.complete(ctx, fmt.Sprintf(summaryPrompt, author, content))
	if err != nil {
		return nil, err
	}

	result := parseResponse(response)
	if result.Summary == "" {
		return result, errors.New("empty summary in LLM response")
	}
	return result, nil
}

func anthropicCompletion(client *anthropic.Client, model string) func(context.Context, string) (string, error) {
	return func(ctx context.Context, prompt string) (string, error) {
		resp, err := client.CreateMessages(ctx, anthropic.MessagesRequest{
			Model:     anthropic.Model(model),
			MaxTokens: 300,
			Messages: []anthropic.Message{
				{
					Role:    anthropic.RoleUser,
					Content: []anthropic.MessageContent{{Type: "text", Text: &prompt}},
				},
			},
		})
		if err != nil {
			return "", err
		}

		if len(resp.Content) == 0 {
			return "", errors.New("empty response from Anthropic")
		}

		return resp.Content[0].GetText(), nil
	}
}

func openAICompletion(client *openai.Client, model string) func(context.Context, string) (string, error) {
	return func(ctx context.Context, prompt string) (string, error) {
		resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:     model,
			MaxTokens: 300,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			return "", err
		}

		if len(resp.Choices) == 0 {
			return "", errors.New("empty response from OpenAI")
		}

		return resp.Choices[0].Message.Content, nil
	}
}

func parseResponse(response string) *SummaryResult {
	result := &SummaryResult{RawResponse: response}

	lines := strings.Split(response, "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "SUMMARY:") {
			result.Summary = strings.TrimSpace(strings.TrimPrefix(line, "SUMMARY:"))
		} else if strings.HasPrefix(line, "KEYWORDS:") {
			result.Keywords = strings.TrimSpace(strings.TrimPrefix(line, "KEYWORDS:"))
		}
	}

	return result
}
