// Package telegram connects the conversation state machine to the Telegram
// Bot API over long polling.
package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/yurifrl/compta/pkg/bot"
	"github.com/yurifrl/compta/pkg/extract"
)

// Handler is the state machine as seen by the transport.
type Handler interface {
	Handle(ctx context.Context, chatID int64, ev bot.Event, now time.Time) []bot.Reply
}

type Adapter struct {
	api     *tgbotapi.BotAPI
	handler Handler
	limits  extract.Limits
	client  *http.Client
	logger  *log.Logger
	wg      sync.WaitGroup
}

func New(token string, handler Handler, limits extract.Limits, logger *log.Logger) (*Adapter, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	logger.Info("telegram connected", "bot", api.Self.UserName)
	return &Adapter{
		api:     api,
		handler: handler,
		limits:  limits,
		client:  &http.Client{Timeout: time.Minute},
		logger:  logger,
	}, nil
}

// Run polls for updates until ctx is cancelled, handling each one in its own
// goroutine. It returns once in-flight updates are done.
func (a *Adapter) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := a.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.api.StopReceivingUpdates()
			a.wg.Wait()
			return nil
		case update, ok := <-updates:
			if !ok {
				a.wg.Wait()
				return nil
			}
			a.wg.Add(1)
			go func(update tgbotapi.Update) {
				defer a.wg.Done()
				a.handle(ctx, update)
			}(update)
		}
	}
}

func (a *Adapter) handle(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Error("panic handling update", "update_id", update.UpdateID, "panic", rec)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		if cq.Message == nil {
			return
		}
		ev := bot.Button(cq.Data)
		ev.FirstName = cq.From.FirstName
		replies := a.handler.Handle(ctx, cq.Message.Chat.ID, ev, time.Now())
		a.answerCallback(cq.ID, replies)
		a.deliver(ctx, cq.Message.Chat.ID, replies)

	case update.Message != nil:
		msg := update.Message
		ev, ref := eventFor(msg)
		if ref != nil {
			if err := a.limits.Check(ev.Input); err != nil {
				// Let the state machine word the rejection.
				ev.Input.Data = nil
			} else {
				a.typing(msg.Chat.ID)
				data, err := a.download(ctx, ref.fileID)
				if err != nil {
					a.logger.Error("failed to download media", "chat_id", msg.Chat.ID, "error", err)
					a.send(msg.Chat.ID, bot.Reply{Text: "❌ Impossible de récupérer le fichier. Réessaie."})
					return
				}
				ev.Input.Data = data
			}
		} else if ev.Kind == bot.EventMessage {
			a.typing(msg.Chat.ID)
		}
		a.deliver(ctx, msg.Chat.ID, a.handler.Handle(ctx, msg.Chat.ID, ev, time.Now()))
	}
}

type mediaRef struct {
	fileID string
}

// eventFor maps a message to a state machine event. Media messages also return
// the file to download.
func eventFor(msg *tgbotapi.Message) (bot.Event, *mediaRef) {
	var ev bot.Event
	switch {
	case msg.IsCommand():
		ev = bot.Command(msg.Command())
	case len(msg.Photo) > 0:
		// Sizes are ordered smallest first.
		p := msg.Photo[len(msg.Photo)-1]
		ev = bot.Media(extract.Input{Kind: extract.KindImage, MIMEType: "image/jpeg", Size: int64(p.FileSize)})
		ev.FirstName = firstName(msg)
		return ev, &mediaRef{fileID: p.FileID}
	case msg.Voice != nil:
		v := msg.Voice
		ev = bot.Media(extract.Input{Kind: extract.KindAudio, MIMEType: orDefault(v.MimeType, "audio/ogg"), Size: int64(v.FileSize), Duration: time.Duration(v.Duration) * time.Second})
		ev.FirstName = firstName(msg)
		return ev, &mediaRef{fileID: v.FileID}
	case msg.Audio != nil:
		au := msg.Audio
		ev = bot.Media(extract.Input{Kind: extract.KindAudio, MIMEType: orDefault(au.MimeType, "audio/mpeg"), Size: int64(au.FileSize), Duration: time.Duration(au.Duration) * time.Second})
		ev.FirstName = firstName(msg)
		return ev, &mediaRef{fileID: au.FileID}
	case msg.Document != nil:
		d := msg.Document
		ev = bot.Media(extract.Input{Kind: extract.KindOf(d.MimeType), MIMEType: orDefault(d.MimeType, "application/octet-stream"), Size: int64(d.FileSize)})
		if ev.Input.Kind == extract.KindText {
			// Not an image or audio: keep it as media so the limits reject it.
			ev.Input.Kind = extract.KindImage
		}
		ev.FirstName = firstName(msg)
		return ev, &mediaRef{fileID: d.FileID}
	default:
		ev = bot.Text(msg.Text)
	}
	ev.FirstName = firstName(msg)
	return ev, nil
}

func firstName(msg *tgbotapi.Message) string {
	if msg.From == nil {
		return ""
	}
	return msg.From.FirstName
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func (a *Adapter) download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := a.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file %s: %w", fileID, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file %s: status %d", fileID, resp.StatusCode)
	}
	limit := a.limits.MaxFileBytes
	if limit <= 0 {
		limit = extract.DefaultLimits().MaxFileBytes
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit+1))
}

func (a *Adapter) typing(chatID int64) {
	if _, err := a.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		a.logger.Debug("failed to send chat action", "chat_id", chatID, "error", err)
	}
}

// answerCallback acknowledges a button press, showing the first ephemeral
// reply as a toast.
func (a *Adapter) answerCallback(id string, replies []bot.Reply) {
	text := ""
	for _, r := range replies {
		if r.Ephemeral {
			text = r.Text
			break
		}
	}
	if _, err := a.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		a.logger.Debug("failed to answer callback", "error", err)
	}
}

func (a *Adapter) deliver(_ context.Context, chatID int64, replies []bot.Reply) {
	for _, r := range replies {
		if r.Ephemeral {
			continue
		}
		a.send(chatID, r)
	}
}

func (a *Adapter) send(chatID int64, r bot.Reply) {
	var c tgbotapi.Chattable
	if r.Document != nil {
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: r.Document.Name, Bytes: r.Document.Data})
		doc.Caption = r.Document.Caption
		doc.ParseMode = tgbotapi.ModeMarkdown
		if kb := keyboard(r.Buttons); kb != nil {
			doc.ReplyMarkup = kb
		}
		c = doc
	} else {
		msg := tgbotapi.NewMessage(chatID, r.Text)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if kb := keyboard(r.Buttons); kb != nil {
			msg.ReplyMarkup = kb
		}
		c = msg
	}
	if _, err := a.api.Send(c); err != nil {
		a.logger.Error("failed to send reply", "chat_id", chatID, "error", err)
	}
}

func keyboard(rows [][]bot.Choice) *tgbotapi.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, c := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Data))
		}
		out = append(out, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(out...)
	return &kb
}

// SendDocument delivers a file outside of a conversation, for scheduled
// reports.
func (a *Adapter) SendDocument(_ context.Context, chatID int64, name string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	if _, err := a.api.Send(doc); err != nil {
		return fmt.Errorf("send %s to %d: %w", name, chatID, err)
	}
	return nil
}
