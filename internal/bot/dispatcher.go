// Package bot routes inbound Telegram updates to the catalog and answers
// through the chat transport.
package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"moviefilter-bot/internal/catalog"
	"moviefilter-bot/internal/logger"
	"moviefilter-bot/internal/metrics"
	"moviefilter-bot/internal/ratelimit"
	"moviefilter-bot/internal/tg"
)

const trackTimeout = 3 * time.Second

// Transport is the outbound side of the chat platform.
type Transport interface {
	SendText(ctx context.Context, chatID int64, text string, actions []catalog.Action) error
	SendDocument(ctx context.Context, chatID int64, fileRef string, thumbRef *string, caption string) error
	AnswerInline(ctx context.Context, a tg.InlineAnswer) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
}

type Catalog interface {
	FindOne(ctx context.Context, query string) (*catalog.Entry, error)
	FindMany(ctx context.Context, query string, limit int) ([]catalog.Entry, error)
	FindByKey(ctx context.Context, externalID string) (*catalog.Entry, error)
	Ingest(ctx context.Context, raw string) (*catalog.Entry, error)
}

type UserTracker interface {
	UpsertUser(ctx context.Context, u catalog.User) error
}

type Options struct {
	Admins          []int64
	SearchLimit     int
	InlineCacheTime int
	Limiter         ratelimit.Limiter
	Users           UserTracker
	Logger          logger.Logger
}

type Dispatcher struct {
	tr          Transport
	catalog     Catalog
	users       UserTracker
	limiter     ratelimit.Limiter
	log         logger.Logger
	admins      map[int64]struct{}
	searchLimit int
	inlineCache int
	now         func() time.Time
}

func NewDispatcher(tr Transport, cat Catalog, opts Options) *Dispatcher {
	d := &Dispatcher{
		tr:          tr,
		catalog:     cat,
		users:       opts.Users,
		limiter:     opts.Limiter,
		log:         opts.Logger,
		admins:      make(map[int64]struct{}, len(opts.Admins)),
		searchLimit: opts.SearchLimit,
		inlineCache: opts.InlineCacheTime,
		now:         time.Now,
	}
	for _, id := range opts.Admins {
		d.admins[id] = struct{}{}
	}
	if d.limiter == nil {
		d.limiter = ratelimit.Unlimited{}
	}
	if d.log == nil {
		d.log = logger.NewNop()
	}
	if d.searchLimit <= 0 {
		d.searchLimit = catalog.DefaultLimit
	}
	if d.inlineCache < 0 {
		d.inlineCache = 0
	}
	return d
}

// HandleUpdate processes one update. It never returns an error: every failure
// is answered to the user where possible and logged.
func (d *Dispatcher) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	log := d.log.With(
		logger.String("correlation_id", uuid.NewString()),
		logger.Int("update_id", upd.UpdateID),
	)

	d.trackUser(ctx, sender(upd), log)

	switch {
	case upd.InlineQuery != nil:
		metrics.Updates.WithLabelValues("inline_query").Inc()
		d.handleInline(ctx, upd.InlineQuery, log)
	case upd.CallbackQuery != nil:
		metrics.Updates.WithLabelValues("callback_query").Inc()
		d.handleCallback(ctx, upd.CallbackQuery, log)
	case upd.Message != nil:
		metrics.Updates.WithLabelValues("message").Inc()
		d.handleMessage(ctx, upd.Message, log)
	default:
		metrics.Updates.WithLabelValues("other").Inc()
		log.Debug("ignoring update")
	}
}

func (d *Dispatcher) isAdmin(u *tgbotapi.User) bool {
	if u == nil {
		return false
	}
	_, ok := d.admins[u.ID]
	return ok
}

func (d *Dispatcher) trackUser(ctx context.Context, u *tgbotapi.User, log logger.Logger) {
	if u == nil || d.users == nil {
		return
	}
	name := u.UserName
	if name == "" {
		name = u.FirstName
	}
	ctx, cancel := context.WithTimeout(ctx, trackTimeout)
	defer cancel()
	err := d.users.UpsertUser(ctx, catalog.User{ID: u.ID, Name: name, LastActive: d.now().UTC()})
	if err != nil {
		log.Warn("track user", logger.Int64("user_id", u.ID), logger.Error(err))
	}
}

// allow consults the rate limiter. A limiter failure lets the request through.
func (d *Dispatcher) allow(ctx context.Context, userID int64, log logger.Logger) bool {
	ok, err := d.limiter.Allow(ctx, userID)
	if err != nil {
		log.Warn("rate limiter unavailable", logger.Int64("user_id", userID), logger.Error(err))
		return true
	}
	if !ok {
		metrics.RateLimited.Inc()
		log.Info("search rate limited", logger.Int64("user_id", userID))
	}
	return ok
}

func sender(upd tgbotapi.Update) *tgbotapi.User {
	switch {
	case upd.Message != nil:
		return upd.Message.From
	case upd.InlineQuery != nil:
		return upd.InlineQuery.From
	case upd.CallbackQuery != nil:
		return upd.CallbackQuery.From
	}
	return nil
}

func userID(u *tgbotapi.User) int64 {
	if u == nil {
		return 0
	}
	return u.ID
}
