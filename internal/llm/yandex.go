package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Morwran/yagpt"
)

// YandexClient is the alternative backend. Text-only: attachments are
// dropped and the prompt's media markers do the talking.
type YandexClient struct {
	ya       yagpt.YaGPTFace
	iamToken string
}

func NewYandex(oauthToken, folderID string) (*YandexClient, error) {
	iam, err := yagpt.NewYaIam(oauthToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init yandex iam: %w", err)
	}
	resp, err := iam.Create()
	if err != nil {
		return nil, fmt.Errorf("failed to create iam token: %w", err)
	}
	ya, err := yagpt.NewYagpt(folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to init yagpt: %w", err)
	}
	return &YandexClient{ya: ya, iamToken: resp.IamToken}, nil
}

func (c *YandexClient) Generate(ctx context.Context, req Request) (Response, error) {
	messages := []yagpt.Message{{Role: "user", Content: req.Prompt}}
	resp, err := c.ya.CompletionWithCtx(ctx, c.iamToken, messages)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Response{}, fmt.Errorf("yagpt completion: %w", ErrTimeout)
		}
		return Response{}, fmt.Errorf("yagpt completion %v: %w", err, ErrUnavailable)
	}
	if resp == nil || len(resp.Alternatives) == 0 {
		return Response{}, fmt.Errorf("yagpt empty response: %w", ErrEmpty)
	}
	content := strings.TrimSpace(resp.Alternatives[0].Message.Content)
	if content == "" {
		return Response{}, fmt.Errorf("yagpt blank alternative: %w", ErrEmpty)
	}
	return Response{Content: content, Model: yagpt.YaModelLite}, nil
}
