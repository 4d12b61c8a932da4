package discord

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/JakeFAU/stockwatch/internal/logtail"
	"github.com/JakeFAU/stockwatch/internal/scheduler"
	"github.com/JakeFAU/stockwatch/internal/stock"
)

func (r *Router) handleHelp(ctx context.Context, m Message) {
	tokens := strings.Join(r.catalog.Tokens(), "|")
	r.reply(ctx, m.ChannelID, fmt.Sprintf(helpText, r.prefix, tokens, logtail.DefaultLines, defaultClear))
}

func (r *Router) handleStatus(ctx context.Context, m Message) {
	snap, err := r.ctrl.Snapshot(ctx)
	if err != nil {
		r.logger.Error("snapshot failed", zap.Error(err))
		r.reply(ctx, m.ChannelID, internalFailed)
		return
	}

	poller := snap.State.String()
	if snap.State == scheduler.Running && !snap.NextTickAt.IsZero() {
		poller += fmt.Sprintf(" (next check in %s)", humanDuration(snap.NextTickAt.Sub(snap.Now)))
	}
	text := fmt.Sprintf(statusFmt,
		productNames(snap.Products),
		minutesText(snap.IntervalMinutes),
		poller,
	)
	if snap.WeekendPaused && r.resumeAt != nil {
		eta := r.resumeAt(snap.Now).Sub(snap.Now)
		text += "\n" + fmt.Sprintf(weekendFmt, humanDuration(eta))
	}
	r.reply(ctx, m.ChannelID, text)
}

func (r *Router) handleSetInterval(ctx context.Context, m Message, args []string) {
	if len(args) != 1 {
		r.reply(ctx, m.ChannelID, fmt.Sprintf(intervalUsage, r.prefix, scheduler.MaxIntervalMinutes))
		return
	}
	minutes, err := strconv.Atoi(args[0])
	if err != nil || !scheduler.ValidInterval(minutes) {
		r.reply(ctx, m.ChannelID, fmt.Sprintf(intervalUsage, r.prefix, scheduler.MaxIntervalMinutes))
		return
	}
	if err := r.ctrl.SetInterval(ctx, minutes); err != nil {
		if errors.Is(err, scheduler.ErrInvalidInterval) {
			r.reply(ctx, m.ChannelID, fmt.Sprintf(intervalUsage, r.prefix, scheduler.MaxIntervalMinutes))
			return
		}
		r.logger.Error("set interval failed", zap.Int("minutes", minutes), zap.Error(err))
		r.reply(ctx, m.ChannelID, internalFailed)
		return
	}
	r.logger.Info("check interval updated", zap.Int("interval_minutes", minutes), zap.String("author_id", m.AuthorID))
	r.reply(ctx, m.ChannelID, fmt.Sprintf(intervalSet, minutesText(minutes), minutesText(minutes)))
}

func (r *Router) handleSetProducts(ctx context.Context, m Message, args []string) {
	tokens := strings.Join(r.catalog.Tokens(), ", ")
	if len(args) != 1 {
		r.reply(ctx, m.ChannelID, fmt.Sprintf(productsUsage, r.prefix, strings.Join(r.catalog.Tokens(), "|")))
		return
	}
	products, err := r.catalog.Resolve(args[0])
	if err != nil {
		r.reply(ctx, m.ChannelID, fmt.Sprintf(productsUnknown, args[0], tokens))
		return
	}
	if err := r.ctrl.SetProducts(ctx, products); err != nil {
		r.logger.Error("set products failed", zap.Strings("products", stock.IDs(products)), zap.Error(err))
		r.reply(ctx, m.ChannelID, internalFailed)
		return
	}
	r.logger.Info("tracked products updated", zap.Strings("products", stock.IDs(products)), zap.String("author_id", m.AuthorID))
	r.reply(ctx, m.ChannelID, fmt.Sprintf(productsSet, productNames(products)))
}

func (r *Router) handleLog(ctx context.Context, m Message, args []string) {
	lines := logtail.DefaultLines
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			r.reply(ctx, m.ChannelID, logUsage)
			return
		}
		lines = n
	}
	if r.logPath == "" {
		r.reply(ctx, m.ChannelID, logDisabled)
		return
	}

	block, err := logtail.Block(r.logPath, lines)
	switch {
	case errors.Is(err, logtail.ErrTooLong):
		r.reply(ctx, m.ChannelID, logTooLong)
	case errors.Is(err, logtail.ErrInvalidLineCount):
		r.reply(ctx, m.ChannelID, logUsage)
	case err != nil:
		r.logger.Error("read log file failed", zap.String("path", r.logPath), zap.Error(err))
		r.reply(ctx, m.ChannelID, fmt.Sprintf(logFailed, err))
	default:
		r.reply(ctx, m.ChannelID, block)
	}
}

func (r *Router) handleClear(ctx context.Context, m Message, args []string) {
	count := defaultClear
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 || n > maxClear {
			r.reply(ctx, m.ChannelID, fmt.Sprintf(clearUsage, r.prefix, maxClear))
			return
		}
		count = n
	}

	perms, err := r.api.UserChannelPermissions(m.AuthorID, m.ChannelID, discordgo.WithContext(ctx))
	if err != nil {
		r.logger.Error("permission lookup failed", zap.String("author_id", m.AuthorID), zap.Error(err))
		r.reply(ctx, m.ChannelID, fmt.Sprintf(clearFailed, err))
		return
	}
	if perms&discordgo.PermissionManageMessages == 0 {
		r.logger.Warn("clear denied", zap.String("author_id", m.AuthorID), zap.String("channel_id", m.ChannelID))
		r.reply(ctx, m.ChannelID, clearDenied)
		return
	}

	msgs, err := r.api.ChannelMessages(m.ChannelID, count, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		r.reply(ctx, m.ChannelID, fmt.Sprintf(clearFailed, err))
		return
	}
	// Bulk delete refuses messages older than two weeks.
	cutoff := r.clock.Now().Add(-bulkMaxAge)
	ids := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		if !msg.Timestamp.IsZero() && msg.Timestamp.Before(cutoff) {
			continue
		}
		ids = append(ids, msg.ID)
	}

	switch len(ids) {
	case 0:
		r.reply(ctx, m.ChannelID, clearNothing)
		return
	case 1:
		err = r.api.ChannelMessageDelete(m.ChannelID, ids[0], discordgo.WithContext(ctx))
	default:
		err = r.api.ChannelMessagesBulkDelete(m.ChannelID, ids, discordgo.WithContext(ctx))
	}
	if err != nil {
		r.logger.Error("clear failed", zap.Int("count", len(ids)), zap.Error(err))
		r.reply(ctx, m.ChannelID, fmt.Sprintf(clearFailed, err))
		return
	}
	r.logger.Info("messages cleared", zap.Int("count", len(ids)), zap.String("author_id", m.AuthorID))
	r.reply(ctx, m.ChannelID, fmt.Sprintf(clearDone, plural(len(ids), "message")))
}

func productNames(products []stock.Product) string {
	if len(products) == 0 {
		return "none"
	}
	names := make([]string, 0, len(products))
	for _, p := range products {
		names = append(names, p.DisplayName())
	}
	return strings.Join(names, ", ")
}

func minutesText(n int) string {
	return plural(n, "minute")
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// humanDuration renders d as "2d 3h 5m", rounding up to the minute.
func humanDuration(d time.Duration) string {
	if d <= 0 {
		return "less than a minute"
	}
	total := int((d + time.Minute - 1) / time.Minute)
	days, hours, mins := total/(24*60), (total/60)%24, total%60

	parts := make([]string, 0, 3)
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if mins > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%dm", mins))
	}
	return strings.Join(parts, " ")
}
