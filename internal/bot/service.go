package bot

import (
	"context"
	"errors"
	"log"
	"time"

	"storebot/internal/conversation"
	"storebot/internal/enrich"
	"storebot/internal/llm"
	"storebot/internal/prompt"
)

const timeLayout = "2006-01-02 15:04"

// Canned replies for paths that never reach the backend or that hide a
// backend failure. The customer always gets some text back.
const (
	fallbackBusy     = "ثواني بس، فيه مشكلة صغيرة وهرجعلك حالا..."
	fallbackEmpty    = "ثواني بس وأرجعلك..."
	replyUnsupported = "ابعت نص أو صورة أو صوت"
)

type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindAudio Kind = "audio"
	KindOther Kind = "other"
)

// Inbound is one customer message after the platform layer has parsed it.
type Inbound struct {
	Kind  Kind
	Text  string
	Media []llm.Media
}

// Service is the conversation core shared by every webhook handler: it reads
// the history window, assembles the prompt, calls the gateway and records
// the exchange.
type Service struct {
	store     *conversation.Store
	assembler *prompt.Assembler
	gateway   llm.Client
	timeout   time.Duration
	clock     func() time.Time
}

func NewService(store *conversation.Store, assembler *prompt.Assembler, gateway llm.Client, timeout time.Duration) *Service {
	return &Service{
		store:     store,
		assembler: assembler,
		gateway:   gateway,
		timeout:   timeout,
		clock:     time.Now,
	}
}

// HandleInbound produces the reply for one inbound message. It never returns
// an error: every failure mode maps to canned text, and the customer message
// plus the reply land in the log as one atomic pair.
func (s *Service) HandleInbound(ctx context.Context, userKey string, in Inbound, fact enrich.Fact) string {
	if in.Kind == Kind("") || in.Kind == KindOther {
		return replyUnsupported
	}

	// First contact: greet without touching the backend. The greeting is
	// recorded as an assistant turn so the next prompt's history shows it.
	if s.store.Len(userKey) == 0 {
		s.store.Append(userKey, conversation.Entry{
			Role: conversation.RoleAssistant,
			Text: prompt.Greeting,
			Time: s.clock().Format(timeLayout),
		})
		return prompt.Greeting
	}

	text := in.Text
	switch in.Kind {
	case KindImage:
		text = prompt.MarkerImage
	case KindAudio:
		text = prompt.MarkerVoice
	}

	history := s.store.RecentWindow(userKey, prompt.HistoryWindow)
	p := s.assembler.Build(history, fact, text)

	gctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	resp, err := s.gateway.Generate(gctx, llm.Request{Prompt: p, Media: in.Media})

	reply := resp.Content
	if err != nil {
		log.Printf("generation failed for %s: %v", userKey, err)
		reply = fallbackBusy
		if errors.Is(err, llm.ErrEmpty) {
			reply = fallbackEmpty
		}
	}

	now := s.clock().Format(timeLayout)
	s.store.Append(userKey,
		conversation.Entry{Role: conversation.RoleCustomer, Text: text, Time: now},
		conversation.Entry{Role: conversation.RoleAssistant, Text: reply, Time: now},
	)
	return reply
}
