// Package telegram delivers dispatch passes to a Telegram chat and answers
// the shop command there.
package telegram

import (
	"context"
	"errors"
	"html"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"sjsage522/shopcollagebot/internal/dispatch"
	"sjsage522/shopcollagebot/logger"
	shoperrors "sjsage522/shopcollagebot/pkg/errors"
	"sjsage522/shopcollagebot/services/publisher"
)

// PassFunc runs one dispatch pass on behalf of a command
type PassFunc func(ctx context.Context) error

// Bot is a Telegram bot bound to one chat
type Bot struct {
	api     *tgbotapi.BotAPI
	chatID  int64
	command string
	log     *logger.Logger
}

// Ensure Bot implements Publisher
var _ publisher.Publisher = (*Bot)(nil)

// New creates a bot talking to the public Bot API
func New(token, chatID, command string) (*Bot, error) {
	return NewWithEndpoint(tgbotapi.APIEndpoint, token, chatID, command)
}

// NewWithEndpoint creates a bot against a custom Bot API endpoint. The
// endpoint is a format string taking the token and the method name.
func NewWithEndpoint(endpoint, token, chatID, command string) (*Bot, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, shoperrors.NewConfiguration("telegram chat id must be numeric", err)
	}

	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, shoperrors.NewDelivery("telegram", "cannot reach bot api", err)
	}

	b := &Bot{
		api:     api,
		chatID:  id,
		command: command,
		log:     logger.ForPublisher("telegram"),
	}
	b.log.Info().Str("user", api.Self.UserName).Msg("Telegram bot authorized")
	return b, nil
}

// PublishCollage sends a single file as a document, or several files as
// one media group with the caption on the first document.
func (b *Bot) PublishCollage(ctx context.Context, post publisher.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var err error
	switch len(post.Files) {
	case 0:
		_, err = b.api.Send(tgbotapi.NewMessage(b.chatID, post.Caption))
	case 1:
		doc := tgbotapi.NewDocument(b.chatID, fileBytes(post.Files[0]))
		doc.Caption = post.Caption
		_, err = b.api.Send(doc)
	default:
		media := make([]interface{}, 0, len(post.Files))
		for i, f := range post.Files {
			doc := tgbotapi.NewInputMediaDocument(fileBytes(f))
			if i == 0 {
				doc.Caption = post.Caption
			}
			media = append(media, doc)
		}
		_, err = b.api.SendMediaGroup(tgbotapi.NewMediaGroup(b.chatID, media))
	}

	if err != nil {
		return shoperrors.NewDelivery("telegram", "cannot send collage", err)
	}
	return nil
}

// PublishPromo sends the promo as an HTML formatted message
func (b *Bot) PublishPromo(ctx context.Context, promo publisher.Promo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(b.chatID, FormatPromo(promo))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		return shoperrors.NewDelivery("telegram", "cannot send promo", err)
	}
	return nil
}

// Listen polls for updates and runs pass for every shop command until ctx
// is done. A command that arrives during a pass gets a busy notice.
func (b *Bot) Listen(ctx context.Context, pass PassFunc) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-updates:
			msg := update.Message
			if msg == nil || !msg.IsCommand() || msg.Command() != b.command {
				continue
			}
			b.log.Info().Int64("chat", msg.Chat.ID).Msg("Shop command received")

			// Run passes off the polling loop so busy notices still go out
			go b.handleCommand(ctx, msg, pass)
		}
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, pass PassFunc) {
	err := pass(ctx)
	if errors.Is(err, dispatch.ErrPassInFlight) {
		reply := tgbotapi.NewMessage(msg.Chat.ID, dispatch.BusyNotice)
		reply.ReplyToMessageID = msg.MessageID
		if _, err := b.api.Send(reply); err != nil {
			b.log.Warn().Err(err).Msg("Failed to send busy notice")
		}
		return
	}
	if err != nil {
		b.log.Error().Err(err).Msg("Command pass failed")
	}
}

// Close is a no-op; polling stops when Listen returns
func (b *Bot) Close() error {
	return nil
}

// FormatPromo renders a promo as Telegram HTML
func FormatPromo(promo publisher.Promo) string {
	var sb strings.Builder
	sb.WriteString("<b>" + html.EscapeString(promo.Title) + "</b>\n")
	if promo.Description != "" {
		sb.WriteString(html.EscapeString(promo.Description) + "\n")
	}
	if len(promo.Fields) > 0 {
		sb.WriteString("\n")
		for _, f := range promo.Fields {
			sb.WriteString("<b>" + html.EscapeString(f.Name) + ":</b> " + html.EscapeString(f.Value) + "\n")
		}
	}
	if promo.Footer != "" {
		sb.WriteString("\n<i>" + html.EscapeString(promo.Footer) + "</i>")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func fileBytes(f publisher.File) tgbotapi.FileBytes {
	return tgbotapi.FileBytes{Name: f.Name, Bytes: f.Data}
}
