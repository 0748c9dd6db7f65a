package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"storebot/internal/bot"
	"storebot/internal/enrich"
	"storebot/internal/llm"
)

const graphBase = "https://graph.facebook.com/v20.0"

// WhatsApp rejects bodies past 4096 chars; cap a bit under, in runes.
const maxReplyRunes = 4000

// Replier is the conversation core the webhook feeds into.
type Replier interface {
	HandleInbound(ctx context.Context, userKey string, in bot.Inbound, fact enrich.Fact) string
}

// UserKey builds the store key for a WhatsApp sender. The "whatsapp:" prefix
// keeps the key space disjoint from other channels.
func UserKey(from string) string {
	return "whatsapp:" + from
}

// Handler serves the WhatsApp Cloud API webhook: GET verification and POST
// message delivery, plus outbound sends through the Graph API.
type Handler struct {
	token       string
	phoneID     string
	verifyToken string
	svc         Replier
	enricher    *enrich.Client
	http        *http.Client
	graphBase   string
}

func New(token, phoneID, verifyToken string, svc Replier, enricher *enrich.Client) *Handler {
	return &Handler{
		token:       token,
		phoneID:     phoneID,
		verifyToken: verifyToken,
		svc:         svc,
		enricher:    enricher,
		http:        &http.Client{Timeout: 30 * time.Second},
		graphBase:   graphBase,
	}
}

// Verify answers Meta's webhook subscription handshake.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.verify_token") == h.verifyToken {
		_, _ = w.Write([]byte(q.Get("hub.challenge")))
		return
	}
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// webhookPayload mirrors the slice of the Cloud API envelope the relay
// reads; everything else is ignored.
type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []inboundMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type inboundMessage struct {
	From string `json:"from"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
	Image *struct {
		ID string `json:"id"`
	} `json:"image"`
	Audio *struct {
		ID string `json:"id"`
	} `json:"audio"`
}

// Receive handles message delivery. Always ACKs 200 so the platform does
// not retry messages the relay has already answered or chosen to skip.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	defer w.WriteHeader(http.StatusOK)

	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Printf("whatsapp: bad webhook payload: %v", err)
		return
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				reply := h.handleMessage(r, msg)
				if reply == "" {
					continue
				}
				h.SendText(r.Context(), msg.From, reply)
			}
		}
	}
}

func (h *Handler) handleMessage(r *http.Request, msg inboundMessage) string {
	in := h.inbound(r.Context(), msg)
	fact := h.enricher.Lookup(r.Context(), enrich.ClientIP(r))
	return h.svc.HandleInbound(r.Context(), UserKey(msg.From), in, fact)
}

func (h *Handler) inbound(ctx context.Context, msg inboundMessage) bot.Inbound {
	switch msg.Type {
	case "text":
		if msg.Text == nil {
			return bot.Inbound{Kind: bot.KindOther}
		}
		return bot.Inbound{Kind: bot.KindText, Text: msg.Text.Body}
	case "image":
		in := bot.Inbound{Kind: bot.KindImage}
		if msg.Image != nil {
			if data, mime, err := h.downloadMedia(ctx, msg.Image.ID); err == nil {
				in.Media = []llm.Media{{Kind: llm.MediaImage, MIME: mime, Data: data}}
			} else {
				log.Printf("whatsapp: image download: %v", err)
			}
		}
		return in
	case "audio", "voice":
		in := bot.Inbound{Kind: bot.KindAudio}
		if msg.Audio != nil {
			if data, mime, err := h.downloadMedia(ctx, msg.Audio.ID); err == nil {
				in.Media = []llm.Media{{Kind: llm.MediaAudio, MIME: mime, Data: data}}
			} else {
				log.Printf("whatsapp: audio download: %v", err)
			}
		}
		return in
	default:
		return bot.Inbound{Kind: bot.KindOther}
	}
}

// downloadMedia resolves a media id to its short-lived URL, then fetches the
// bytes. Both calls carry the access token.
func (h *Handler) downloadMedia(ctx context.Context, mediaID string) ([]byte, string, error) {
	var meta struct {
		URL      string `json:"url"`
		MimeType string `json:"mime_type"`
	}
	if err := h.getJSON(ctx, fmt.Sprintf("%s/%s", h.graphBase, mediaID), &meta); err != nil {
		return nil, "", fmt.Errorf("resolve media %s: %w", mediaID, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, meta.URL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+h.token)
	resp, err := h.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch media: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch media: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read media: %w", err)
	}
	return data, meta.MimeType, nil
}

// SendText delivers a reply through the Cloud API.
func (h *Handler) SendText(ctx context.Context, to, text string) {
	if h.token == "" || h.phoneID == "" {
		return
	}
	body, _ := json.Marshal(map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": truncateRunes(text, maxReplyRunes)},
	})
	url := fmt.Sprintf("%s/%s/messages", h.graphBase, h.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		log.Printf("whatsapp: build send request: %v", err)
		return
	}
	req.Header.Set("Authorization", "Bearer "+h.token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.http.Do(req)
	if err != nil {
		log.Printf("whatsapp: send to %s failed: %v", to, err)
		return
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		log.Printf("whatsapp: send to %s returned status %d", to, resp.StatusCode)
	}
}

func (h *Handler) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+h.token)
	resp, err := h.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
