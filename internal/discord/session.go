// Package discord connects the stock watcher to a Discord channel: it sends
// announcements and serves the prefix chat commands.
package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Session is the subset of *discordgo.Session used by the bot.
type Session interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessagesBulkDelete(channelID string, messages []string, options ...discordgo.RequestOption) error
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// ErrChannelUnavailable is returned when the announcement channel cannot be
// resolved at startup.
var ErrChannelUnavailable = errors.New("discord channel unavailable")

// Bot owns the gateway connection and the announcement channel.
type Bot struct {
	session   *discordgo.Session
	api       Session
	channelID string
	logger    *zap.Logger

	mu      sync.Mutex
	ctx     context.Context
	router  *Router
	onReady func(ctx context.Context)
}

// New creates a bot for token that announces into channelID. No network
// calls are made until Open.
func New(token, channelID string, logger *zap.Logger) (*Bot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent
	return &Bot{
		session:   s,
		api:       s,
		channelID: channelID,
		logger:    logger,
		ctx:       context.Background(),
	}, nil
}

// Session exposes the REST API for the command router.
func (b *Bot) Session() Session {
	return b.api
}

// HandleCommands routes incoming messages to r.
func (b *Bot) HandleCommands(r *Router) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.router = r
}

// OnReady registers fn to run whenever the gateway reports ready.
func (b *Bot) OnReady(fn func(ctx context.Context)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onReady = fn
}

// ResolveChannel checks that the announcement channel exists and is
// visible to the bot.
func (b *Bot) ResolveChannel(ctx context.Context) (*discordgo.Channel, error) {
	ch, err := b.api.Channel(b.channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrChannelUnavailable, b.channelID, err)
	}
	return ch, nil
}

// Open resolves the channel and connects to the gateway. Event handlers
// use ctx for their outbound calls.
func (b *Bot) Open(ctx context.Context) error {
	ch, err := b.ResolveChannel(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()

	b.session.AddHandler(b.handleReady)
	b.session.AddHandler(b.handleMessageCreate)
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	b.logger.Info("discord connected", zap.String("channel_id", ch.ID), zap.String("channel", ch.Name))
	return nil
}

// Close disconnects from the gateway.
func (b *Bot) Close() error {
	if err := b.session.Close(); err != nil {
		return fmt.Errorf("close discord gateway: %w", err)
	}
	return nil
}

// SendMessage posts text to the announcement channel.
func (b *Bot) SendMessage(ctx context.Context, text string) error {
	if _, err := b.api.ChannelMessageSend(b.channelID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send to channel %s: %w", b.channelID, err)
	}
	return nil
}

func (b *Bot) handleReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.mu.Lock()
	ctx, fn := b.ctx, b.onReady
	b.mu.Unlock()

	if r.User != nil {
		b.logger.Info("logged in", zap.String("user", r.User.String()))
	}
	if fn != nil {
		fn(ctx)
	}
}

func (b *Bot) handleMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	b.mu.Lock()
	ctx, router := b.ctx, b.router
	b.mu.Unlock()

	if router == nil || m.Author == nil {
		return
	}
	router.HandleMessage(ctx, Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		AuthorID:  m.Author.ID,
		AuthorBot: m.Author.Bot,
		Content:   m.Content,
	})
}
