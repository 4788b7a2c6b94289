package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"RSIRadar/internal/favorites"
	"RSIRadar/internal/model"
	"RSIRadar/internal/progress"
	"RSIRadar/internal/ranking"

	"go.uber.org/zap"
)

const extremesCount = 10

// Service is the part of radar.Radar the console reads and mutates.
type Service interface {
	Progress() progress.State
	Extremes(n int, top bool) []model.MetricRecord
	Favorites() []favorites.Card
	MaxFavorites() int
	AddFavorite(ctx context.Context, input string) (string, error)
	RemoveFavorite(ctx context.Context, input string) (string, bool)
	DisplayName(symbol string) string
	OnCard(fn func(prev, next favorites.Card))
	OnProgress(fn func(progress.State))
}

// Sender delivers a message to the chat.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Console answers Telegram commands and pushes alerts.
type Console struct {
	svc    Service
	sender Sender
	logger *zap.Logger
}

func NewConsole(svc Service, sender Sender, logger *zap.Logger) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{svc: svc, sender: sender, logger: logger}
}

// Attach subscribes to settled transitions and favorite zone crossings.
// Alerts are delivered asynchronously on ctx.
func (c *Console) Attach(ctx context.Context) {
	c.svc.OnProgress(func(s progress.State) {
		if s.Phase == progress.PhaseSettled {
			go c.trySend(ctx, FormatSettled(s))
		}
	})
	c.svc.OnCard(func(prev, next favorites.Card) {
		if shouldAlert(prev, next) {
			go c.trySend(ctx, FormatZoneAlert(next))
		}
	})
}

// shouldAlert skips the first value after a card is created.
func shouldAlert(prev, next favorites.Card) bool {
	if prev.Loading || prev.Zone == ranking.ZoneNone {
		return false
	}
	return ranking.Crossed(prev.Zone, next.Zone)
}

// HandleCommand processes a user command and returns a reply.
func (c *Console) HandleCommand(ctx context.Context, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch cmd {
	case "/progress":
		return FormatProgress(c.svc.Progress())
	case "/top":
		return FormatExtremes("Highest RSI", c.svc.Extremes(extremesCount, true), c.svc.DisplayName)
	case "/bottom":
		return FormatExtremes("Lowest RSI", c.svc.Extremes(extremesCount, false), c.svc.DisplayName)
	case "/favorites":
		return FormatFavorites(c.svc.Favorites())
	case "/add":
		if arg == "" {
			return "Usage: /add btc"
		}
		sym, err := c.svc.AddFavorite(ctx, arg)
		switch {
		case err == nil:
			return fmt.Sprintf("⭐ Added %s", c.svc.DisplayName(sym))
		case errors.Is(err, favorites.ErrDuplicateFavorite):
			return fmt.Sprintf("%s is already a favorite", c.svc.DisplayName(sym))
		case errors.Is(err, favorites.ErrFavoriteLimitExceeded):
			return fmt.Sprintf("Favorites are full (%d). Remove one first.", c.svc.MaxFavorites())
		case errors.Is(err, favorites.ErrUnknownSymbol):
			return fmt.Sprintf("Unknown symbol %q", arg)
		default:
			c.logger.Error("add favorite", zap.String("input", arg), zap.Error(err))
			return "Could not add favorite"
		}
	case "/remove":
		if arg == "" {
			return "Usage: /remove btc"
		}
		sym, removed := c.svc.RemoveFavorite(ctx, arg)
		if !removed {
			return fmt.Sprintf("%s is not a favorite", arg)
		}
		return fmt.Sprintf("Removed %s", c.svc.DisplayName(sym))
	default:
		return "Commands:\n• /progress\n• /top\n• /bottom\n• /favorites\n• /add &lt;coin&gt;\n• /remove &lt;coin&gt;"
	}
}

func (c *Console) trySend(ctx context.Context, text string) {
	if err := c.sender.SendWithRetry(ctx, text, 3); err != nil {
		c.logger.Error("send notification", zap.Error(err))
	}
}
