package llm

import (
	"context"
	"errors"
)

// Sentinel failure kinds the relay maps to canned replies. Providers wrap
// these with %w so callers classify via errors.Is.
var (
	ErrBlocked     = errors.New("generation blocked by content safety")
	ErrTimeout     = errors.New("generation timed out")
	ErrUnavailable = errors.New("generation backend unavailable")
	ErrEmpty       = errors.New("generation returned no usable text")
)

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaAudio MediaKind = "audio"
)

// Media is a raw attachment that travels to the backend alongside the
// assembled prompt.
type Media struct {
	Kind MediaKind
	MIME string
	Data []byte
}

type Request struct {
	Prompt string
	Media  []Media
}

type Response struct {
	Content string
	Model   string
}

type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)
}
