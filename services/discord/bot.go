// Package discord delivers dispatch passes to a Discord text channel and
// listens for the shop command there.
package discord

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/discordgo"

	"sjsage522/shopcollagebot/internal/dispatch"
	"sjsage522/shopcollagebot/logger"
	shoperrors "sjsage522/shopcollagebot/pkg/errors"
	"sjsage522/shopcollagebot/services/publisher"
)

// PassFunc runs one dispatch pass on behalf of a command
type PassFunc func(ctx context.Context) error

// replier sends a reply to a channel message
type replier interface {
	ChannelMessageSendReply(channelID string, content string, reference *discordgo.MessageReference, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Bot is a Discord session bound to one channel
type Bot struct {
	session   *discordgo.Session
	channelID string
	command   string
	log       *logger.Logger
}

// Ensure Bot implements Publisher
var _ publisher.Publisher = (*Bot)(nil)

// New creates a bot; the gateway connection is only opened by Listen
func New(token, channelID, prefix, command string) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, shoperrors.NewConfiguration("cannot create discord session", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	return &Bot{
		session:   session,
		channelID: channelID,
		command:   prefix + command,
		log:       logger.ForPublisher("discord"),
	}, nil
}

// PublishCollage sends the caption with all files as one message
func (b *Bot) PublishCollage(ctx context.Context, post publisher.Post) error {
	_, err := b.session.ChannelMessageSendComplex(b.channelID, toMessage(post), discordgo.WithContext(ctx))
	if err != nil {
		return shoperrors.NewDelivery("discord", "cannot send collage", err)
	}
	return nil
}

// PublishPromo sends the promo as an embed
func (b *Bot) PublishPromo(ctx context.Context, promo publisher.Promo) error {
	_, err := b.session.ChannelMessageSendEmbed(b.channelID, toEmbed(promo), discordgo.WithContext(ctx))
	if err != nil {
		return shoperrors.NewDelivery("discord", "cannot send promo", err)
	}
	return nil
}

// Listen opens the gateway and runs pass for every shop command until ctx
// is done. A command that arrives during a pass gets a busy notice.
func (b *Bot) Listen(ctx context.Context, pass PassFunc) error {
	remove := b.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		b.handleMessage(ctx, s, m, pass)
	})
	defer remove()

	if err := b.session.Open(); err != nil {
		return shoperrors.NewDelivery("discord", "cannot open gateway", err)
	}
	b.log.Info().Str("channel", b.channelID).Msg("Discord gateway opened")

	<-ctx.Done()
	return nil
}

// Close closes the gateway connection if it is open
func (b *Bot) Close() error {
	return b.session.Close()
}

// handleMessage runs pass for a shop command and answers with the busy
// notice when another pass holds the lock
func (b *Bot) handleMessage(ctx context.Context, r replier, m *discordgo.MessageCreate, pass PassFunc) {
	if !b.isCommand(m) {
		return
	}
	b.log.Info().Str("user", m.Author.Username).Str("channel", m.ChannelID).Msg("Shop command received")

	err := pass(ctx)
	if errors.Is(err, dispatch.ErrPassInFlight) {
		if _, err := r.ChannelMessageSendReply(m.ChannelID, dispatch.BusyNotice, m.Reference()); err != nil {
			b.log.Warn().Err(err).Msg("Failed to send busy notice")
		}
		return
	}
	if err != nil {
		b.log.Error().Err(err).Msg("Command pass failed")
	}
}

func (b *Bot) isCommand(m *discordgo.MessageCreate) bool {
	if m.Author == nil || m.Author.Bot {
		return false
	}
	return strings.TrimSpace(m.Content) == b.command
}

func toMessage(post publisher.Post) *discordgo.MessageSend {
	msg := &discordgo.MessageSend{Content: post.Caption}
	for _, f := range post.Files {
		msg.Files = append(msg.Files, &discordgo.File{
			Name:        f.Name,
			ContentType: f.ContentType,
			Reader:      f.Reader(),
		})
	}
	return msg
}

func toEmbed(promo publisher.Promo) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       promo.Title,
		Description: promo.Description,
		Color:       promo.Color,
	}
	for _, f := range promo.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	if promo.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: promo.Footer}
	}
	return embed
}
