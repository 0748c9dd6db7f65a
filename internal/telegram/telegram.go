package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"storebot/internal/bot"
	"storebot/internal/enrich"
	"storebot/internal/llm"
)

const (
	replyBadPhoto = "مش قادر أشوف الصورة"
	replyBadVoice = "الصوت مش واضح"
)

// Replier is the conversation core the webhook feeds into.
type Replier interface {
	HandleInbound(ctx context.Context, userKey string, in bot.Inbound, fact enrich.Fact) string
}

// UserKey builds the store key for a Telegram user. The "telegram:" prefix
// keeps the key space disjoint from other channels.
func UserKey(userID int64) string {
	return fmt.Sprintf("telegram:%d", userID)
}

// Bot receives Telegram webhook updates and sends replies back.
type Bot struct {
	api      *tgbotapi.BotAPI
	svc      Replier
	enricher *enrich.Client
}

func New(token string, svc Replier, enricher *enrich.Client) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("init telegram api: %w", err)
	}
	return &Bot{api: api, svc: svc, enricher: enricher}, nil
}

// RegisterWebhook points the bot at <publicURL>/telegram. Called once at
// startup when a public URL is configured.
func (b *Bot) RegisterWebhook(publicURL string) error {
	wh, err := tgbotapi.NewWebhook(publicURL + "/telegram")
	if err != nil {
		return fmt.Errorf("build webhook config: %w", err)
	}
	if _, err := b.api.Request(wh); err != nil {
		return fmt.Errorf("set telegram webhook: %w", err)
	}
	log.Printf("telegram webhook registered at %s/telegram", publicURL)
	return nil
}

// HandleWebhook processes one Telegram update. Always ACKs 200: Telegram
// retries non-2xx responses and the relay owns its own failure replies.
func (b *Bot) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	defer w.WriteHeader(http.StatusOK)

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		log.Printf("telegram: bad update payload: %v", err)
		return
	}
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	userKey := UserKey(msg.From.ID)
	in, directReply := b.inbound(msg)

	reply := directReply
	if reply == "" {
		fact := b.enricher.Lookup(r.Context(), enrich.ClientIP(r))
		reply = b.svc.HandleInbound(r.Context(), userKey, in, fact)
	}
	b.send(msg.Chat.ID, reply)
}

// inbound converts a Telegram message into the core's shape. A non-empty
// direct reply means the message could not be converted (e.g. an
// undownloadable photo) and short-circuits the core.
func (b *Bot) inbound(msg *tgbotapi.Message) (bot.Inbound, string) {
	switch {
	case msg.Text != "":
		return bot.Inbound{Kind: bot.KindText, Text: msg.Text}, ""
	case len(msg.Photo) > 0:
		// Telegram sends several sizes; last is the largest.
		data, err := b.download(msg.Photo[len(msg.Photo)-1].FileID)
		if err != nil {
			log.Printf("telegram: photo download: %v", err)
			return bot.Inbound{}, replyBadPhoto
		}
		return bot.Inbound{
			Kind:  bot.KindImage,
			Media: []llm.Media{{Kind: llm.MediaImage, MIME: "image/jpeg", Data: data}},
		}, ""
	case msg.Voice != nil || msg.Audio != nil:
		fileID := ""
		if msg.Voice != nil {
			fileID = msg.Voice.FileID
		} else {
			fileID = msg.Audio.FileID
		}
		data, err := b.download(fileID)
		if err != nil {
			log.Printf("telegram: voice download: %v", err)
			return bot.Inbound{}, replyBadVoice
		}
		return bot.Inbound{
			Kind:  bot.KindAudio,
			Media: []llm.Media{{Kind: llm.MediaAudio, MIME: "audio/ogg", Data: data}},
		}, ""
	default:
		return bot.Inbound{Kind: bot.KindOther}, ""
	}
}

func (b *Bot) download(fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	resp, err := http.Get(file.Link(b.api.Token))
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

func (b *Bot) send(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("telegram: send to %d failed: %v", chatID, err)
	}
}
