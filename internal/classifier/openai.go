package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/recallkit/recall-mcp/internal/retry"
)

// ProviderOpenAI is the online classification provider name
const ProviderOpenAI = "openai"

// DefaultChatModel is the model used for classification calls
const DefaultChatModel = openai.ChatModelGPT4oMini

// maxClassifyInput bounds the text sent per classification call
const maxClassifyInput = 8000

// OpenAIClassifier classifies content through the OpenAI chat API
type OpenAIClassifier struct {
	client openai.Client
	model  openai.ChatModel
	retry  retry.Config
}

// NewOpenAIClassifier creates an OpenAI-backed classifier
func NewOpenAIClassifier(apiKey string) (*OpenAIClassifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing OpenAI API key", ErrProviderFailed)
	}
	return &OpenAIClassifier{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  DefaultChatModel,
		retry:  retry.DefaultConfig(),
	}, nil
}

func (c *OpenAIClassifier) Classify(ctx context.Context, text string, existingCategories []string) (*Classification, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	prompt := classifyPrompt(truncate(text, maxClassifyInput), existingCategories)
	content, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return ParseClassification(content)
}

func (c *OpenAIClassifier) ChooseCategory(ctx context.Context, text string, existingCategories []string) (*CategoryChoice, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	prompt := choosePrompt(truncate(text, maxClassifyInput), existingCategories)
	content, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var out struct {
		Category CategoryChoice `json:"category"`
	}
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if out.Category.Label == "" {
		return nil, fmt.Errorf("%w: empty category label", ErrBadResponse)
	}
	return &out.Category, nil
}

func (c *OpenAIClassifier) Provider() string {
	return ProviderOpenAI
}

// complete runs one JSON-mode chat completion with bounded retry
func (c *OpenAIClassifier) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := retry.Do(ctx, c.retry, func() (*openai.ChatCompletion, error) {
		return c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: c.model,
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage("You organize a personal knowledge base. Respond with JSON only."),
				openai.UserMessage(prompt),
			},
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
			},
		})
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrProviderFailed)
	}
	return resp.Choices[0].Message.Content, nil
}

// ParseClassification decodes and validates a classification JSON payload
func ParseClassification(content string) (*Classification, error) {
	var result Classification
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if result.Category.Label == "" {
		return nil, fmt.Errorf("%w: empty category label", ErrBadResponse)
	}
	if result.Title == "" {
		result.Title = result.Summary
	}
	return &result, nil
}

func classifyPrompt(text string, existingCategories []string) string {
	var b strings.Builder
	b.WriteString("Classify the following content for a personal knowledge base.\n")
	b.WriteString("Respond with JSON: {\"category\":{\"label\":string},\"title\":string,\"description\":string,\"summary\":string}.\n")
	writeCategoryConstraint(&b, existingCategories)
	b.WriteString("\nContent:\n")
	b.WriteString(text)
	return b.String()
}

func choosePrompt(text string, existingCategories []string) string {
	var b strings.Builder
	b.WriteString("Pick a category for the following content.\n")
	b.WriteString("Respond with JSON: {\"category\":{\"label\":string}}.\n")
	writeCategoryConstraint(&b, existingCategories)
	b.WriteString("\nContent:\n")
	b.WriteString(text)
	return b.String()
}

func writeCategoryConstraint(b *strings.Builder, existingCategories []string) {
	if len(existingCategories) == 0 {
		b.WriteString("There are no existing categories; propose one short label.\n")
		return
	}
	b.WriteString("Prefer one of the existing categories: ")
	b.WriteString(strings.Join(existingCategories, ", "))
	b.WriteString(". Propose a new short label only if none fit.\n")
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}
