package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient talks to any OpenAI-compatible chat endpoint, including
// Gemini's compatibility surface when baseURL points at it.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAI(apiKey, baseURL, model string) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, req Request) (Response, error) {
	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	images := imageParts(req.Media)
	if len(images) > 0 {
		msg.MultiContent = append([]openai.ChatMessagePart{{
			Type: openai.ChatMessagePartTypeText,
			Text: req.Prompt,
		}}, images...)
	} else {
		msg.Content = req.Prompt
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: []openai.ChatCompletionMessage{msg},
	})
	if err != nil {
		return Response{}, classify(err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("no choices: %w", ErrEmpty)
	}
	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return Response{}, fmt.Errorf("content filter: %w", ErrBlocked)
	}
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return Response{}, fmt.Errorf("blank completion: %w", ErrEmpty)
	}
	return Response{Content: content, Model: c.model}, nil
}

// imageParts encodes image attachments as data-URL message parts. Audio is
// skipped here: the compat endpoint has no audio part, the prompt's marker
// text carries the fact of the recording.
func imageParts(media []Media) []openai.ChatMessagePart {
	var parts []openai.ChatMessagePart
	for _, m := range media {
		if m.Kind != MediaImage || len(m.Data) == 0 {
			continue
		}
		mime := m.MIME
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(m.Data)),
			},
		})
	}
	return parts
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%v: %w", err, ErrTimeout)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(fmt.Sprint(apiErr.Code)), "content"):
			return fmt.Errorf("%v: %w", err, ErrBlocked)
		case apiErr.HTTPStatusCode == http.StatusRequestTimeout:
			return fmt.Errorf("%v: %w", err, ErrTimeout)
		}
	}
	return fmt.Errorf("%v: %w", err, ErrUnavailable)
}
