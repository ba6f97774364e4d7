package bot

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"moviefilter-bot/internal/catalog"
	"moviefilter-bot/internal/logger"
	"moviefilter-bot/internal/metrics"
	"moviefilter-bot/internal/tg"
)

func (d *Dispatcher) handleMessage(ctx context.Context, msg *tgbotapi.Message, log logger.Logger) {
	if msg.Chat == nil {
		return
	}
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			if msg.Chat.IsPrivate() {
				d.reply(ctx, msg.Chat.ID, msgStart, log)
			}
		case "help":
			text := msgHelp
			if d.isAdmin(msg.From) {
				text += msgAdminHelp
			}
			d.reply(ctx, msg.Chat.ID, text, log)
		case "addmovie":
			d.handleAddMovie(ctx, msg, log)
		default:
			log.Debug("unknown command", logger.String("command", msg.Command()))
		}
		return
	}

	if !msg.Chat.IsPrivate() {
		return
	}
	query := strings.TrimSpace(msg.Text)
	if query == "" {
		return
	}
	d.handleSearch(ctx, msg.Chat.ID, userID(msg.From), query, log)
}

func (d *Dispatcher) handleSearch(ctx context.Context, chatID, uid int64, query string, log logger.Logger) {
	if !d.allow(ctx, uid, log) {
		d.reply(ctx, chatID, msgRateLimited, log)
		return
	}

	e, err := d.catalog.FindOne(ctx, query)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		d.reply(ctx, chatID, msgNotFound(query), log)
		return
	case err != nil:
		log.Error("search", logger.String("query", query), logger.Error(err))
		d.reply(ctx, chatID, msgUnavailable, log)
		return
	}

	r := catalog.Assemble(*e)
	if err := d.tr.SendText(ctx, chatID, r.Text, r.Actions); err != nil {
		log.Error("send search result", logger.String("external_id", e.ExternalID), logger.Error(err))
	}
}

func (d *Dispatcher) handleInline(ctx context.Context, q *tgbotapi.InlineQuery, log logger.Logger) {
	query := strings.TrimSpace(q.Query)
	if query == "" {
		d.answerInline(ctx, tg.InlineAnswer{
			QueryID:       q.ID,
			CacheTime:     inlineHintCache,
			SwitchPMText:  inlineHint,
			SwitchPMParam: inlineHintParam,
		}, log)
		return
	}

	if !d.allow(ctx, userID(q.From), log) {
		d.answerInline(ctx, tg.InlineAnswer{
			QueryID:       q.ID,
			SwitchPMText:  inlineLimitedHint,
			SwitchPMParam: inlineHintParam,
		}, log)
		return
	}

	entries, err := d.catalog.FindMany(ctx, query, d.searchLimit)
	if err != nil {
		log.Error("inline search", logger.String("query", query), logger.Error(err))
		d.answerInline(ctx, tg.InlineAnswer{QueryID: q.ID}, log)
		return
	}

	results := make([]catalog.InlineResult, 0, len(entries))
	for _, e := range entries {
		results = append(results, catalog.AssembleInline(e))
	}
	d.answerInline(ctx, tg.InlineAnswer{QueryID: q.ID, Results: results, CacheTime: d.inlineCache}, log)
}

func (d *Dispatcher) answerInline(ctx context.Context, a tg.InlineAnswer, log logger.Logger) {
	err := d.tr.AnswerInline(ctx, a)
	switch {
	case errors.Is(err, tg.ErrQueryExpired):
		log.Warn("inline query expired", logger.String("query_id", a.QueryID))
	case err != nil:
		log.Error("answer inline query", logger.String("query_id", a.QueryID), logger.Error(err))
	}
}

func (d *Dispatcher) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery, log logger.Logger) {
	id, ok := catalog.ParseCallbackData(cq.Data)
	if !ok {
		d.answerCallback(ctx, cq.ID, "", false, log)
		return
	}

	e, err := d.catalog.FindByKey(ctx, id)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		metrics.Deliveries.WithLabelValues(metrics.ResultMiss).Inc()
		d.answerCallback(ctx, cq.ID, msgFileNotFound, true, log)
		return
	case err != nil:
		metrics.Deliveries.WithLabelValues(metrics.ResultError).Inc()
		log.Error("callback lookup", logger.String("external_id", id), logger.Error(err))
		d.answerCallback(ctx, cq.ID, msgUnavailable, true, log)
		return
	case e.MediaRef == nil:
		metrics.Deliveries.WithLabelValues(metrics.ResultMiss).Inc()
		d.answerCallback(ctx, cq.ID, msgFileNotFound, true, log)
		return
	}

	// Buttons under inline results have no message; the file goes to the
	// user's private chat instead.
	chatID := userID(cq.From)
	if cq.Message != nil && cq.Message.Chat != nil {
		chatID = cq.Message.Chat.ID
	}

	if err := d.tr.SendDocument(ctx, chatID, *e.MediaRef, e.ThumbnailRef, catalog.Caption(*e)); err != nil {
		derr := &catalog.DeliveryError{ExternalID: e.ExternalID, Err: err}
		metrics.Deliveries.WithLabelValues(metrics.ResultError).Inc()
		log.Error("deliver media", logger.String("external_id", e.ExternalID), logger.Int64("chat_id", chatID), logger.Error(derr))
		d.answerCallback(ctx, cq.ID, msgDeliveryFail, true, log)
		return
	}
	metrics.Deliveries.WithLabelValues(metrics.ResultOK).Inc()
	d.answerCallback(ctx, cq.ID, msgSending, false, log)
}

func (d *Dispatcher) answerCallback(ctx context.Context, id, text string, alert bool, log logger.Logger) {
	if err := d.tr.AnswerCallback(ctx, id, text, alert); err != nil {
		log.Warn("answer callback", logger.String("callback_id", id), logger.Error(err))
	}
}

func (d *Dispatcher) handleAddMovie(ctx context.Context, msg *tgbotapi.Message, log logger.Logger) {
	if !d.isAdmin(msg.From) {
		log.Warn("addmovie from non-admin ignored", logger.Int64("user_id", userID(msg.From)))
		return
	}

	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		d.reply(ctx, msg.Chat.ID, msgAddUsage, log)
		return
	}

	e, err := d.catalog.Ingest(ctx, args)
	var verr *catalog.ValidationError
	switch {
	case errors.As(err, &verr):
		d.reply(ctx, msg.Chat.ID, msgInvalid(verr.Reason), log)
		return
	case err != nil:
		log.Error("addmovie", logger.Error(err))
		d.reply(ctx, msg.Chat.ID, msgNotSaved, log)
		return
	}

	log.Info("movie added",
		logger.String("external_id", e.ExternalID),
		logger.Int64("admin_id", userID(msg.From)),
	)
	d.reply(ctx, msg.Chat.ID, msgAdded(e.Title, e.ExternalID), log)
}

func (d *Dispatcher) reply(ctx context.Context, chatID int64, text string, log logger.Logger) {
	if err := d.tr.SendText(ctx, chatID, text, nil); err != nil {
		log.Error("send message", logger.Int64("chat_id", chatID), logger.Error(err))
	}
}
