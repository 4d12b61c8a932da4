package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/scheduler"
	"github.com/JakeFAU/stockwatch/internal/stock"
)

const (
	maxClear     = 100
	bulkMaxAge   = 14 * 24 * time.Hour
	defaultClear = maxClear
)

// Message is an inbound chat message.
type Message struct {
	ID        string
	ChannelID string
	AuthorID  string
	AuthorBot bool
	Content   string
}

// Controller is the scheduler surface the commands drive.
type Controller interface {
	Snapshot(ctx context.Context) (scheduler.Snapshot, error)
	SetInterval(ctx context.Context, minutes int) error
	SetProducts(ctx context.Context, products []stock.Product) error
}

// RouterConfig holds the command settings.
type RouterConfig struct {
	Prefix  string
	LogPath string
	// ResumeAt returns when weekend polling resumes after now.
	ResumeAt func(now time.Time) time.Time
	Clock    stock.Clock
}

// Router parses prefix commands and dispatches them to handlers.
type Router struct {
	api      Session
	ctrl     Controller
	catalog  *stock.Catalog
	prefix   string
	logPath  string
	resumeAt func(time.Time) time.Time
	clock    stock.Clock
	logger   *zap.Logger
}

// NewRouter creates a command router replying through api.
func NewRouter(api Session, ctrl Controller, catalog *stock.Catalog, cfg RouterConfig, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "!"
	}
	if cfg.Clock == nil {
		cfg.Clock = wallClock{}
	}
	return &Router{
		api:      api,
		ctrl:     ctrl,
		catalog:  catalog,
		prefix:   cfg.Prefix,
		logPath:  cfg.LogPath,
		resumeAt: cfg.ResumeAt,
		clock:    cfg.Clock,
		logger:   logger,
	}
}

// HandleMessage routes a single message to the matching command.
func (r *Router) HandleMessage(ctx context.Context, m Message) {
	if m.AuthorBot {
		return
	}
	text := strings.TrimSpace(m.Content)
	if !strings.HasPrefix(text, r.prefix) {
		return
	}
	fields := strings.Fields(strings.TrimPrefix(text, r.prefix))
	if len(fields) == 0 {
		return
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	r.logger.Info("command received",
		zap.String("command", cmd),
		zap.Strings("args", args),
		zap.String("author_id", m.AuthorID),
		zap.String("channel_id", m.ChannelID),
	)

	switch cmd {
	case "status":
		r.handleStatus(ctx, m)
	case "setinterval":
		r.handleSetInterval(ctx, m, args)
	case "setproducts":
		r.handleSetProducts(ctx, m, args)
	case "log":
		r.handleLog(ctx, m, args)
	case "clear":
		r.handleClear(ctx, m, args)
	case "help":
		r.handleHelp(ctx, m)
	default:
		r.reply(ctx, m.ChannelID, fmt.Sprintf(unknownCommand, cmd, r.prefix))
	}
}

// reply sends text to channelID. Failures are logged only.
func (r *Router) reply(ctx context.Context, channelID, text string) {
	if _, err := r.api.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx)); err != nil {
		r.logger.Error("reply failed", zap.String("channel_id", channelID), zap.Error(err))
	}
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }
