package tg

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"moviefilter-bot/internal/catalog"
)

// PlaceholderThumbURL is shown next to inline results.
const PlaceholderThumbURL = "https://via.placeholder.com/48x48?text=Movie"

// ErrQueryExpired is returned when Telegram no longer accepts an answer to an
// inline query, which happens routinely while the user keeps typing.
var ErrQueryExpired = errors.New("tg: inline query expired")

type Client struct {
	api *tgbotapi.BotAPI
}

func NewClient(token string) (*Client, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: 70 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return &Client{api: api}, nil
}

func (c *Client) Username() string { return c.api.Self.UserName }

// SendText sends a Markdown message with link previews off and one keyboard
// row per action.
func (c *Client) SendText(ctx context.Context, chatID int64, text string, actions []catalog.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if kb := Keyboard(actions); kb != nil {
		msg.ReplyMarkup = *kb
	}
	_, err := c.api.Send(msg)
	return err
}

// SendDocument forwards a stored file by its Telegram file id.
func (c *Client) SendDocument(ctx context.Context, chatID int64, fileRef string, thumbRef *string, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileID(fileRef))
	doc.Caption = caption
	doc.ParseMode = tgbotapi.ModeMarkdown
	if thumbRef != nil {
		doc.Thumb = tgbotapi.FileID(*thumbRef)
	}
	_, err := c.api.Send(doc)
	return err
}

type InlineAnswer struct {
	QueryID       string
	Results       []catalog.InlineResult
	CacheTime     int
	SwitchPMText  string
	SwitchPMParam string
}

func (c *Client) AnswerInline(ctx context.Context, a InlineAnswer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	results := make([]interface{}, 0, len(a.Results))
	for _, r := range a.Results {
		results = append(results, article(r))
	}
	_, err := c.api.Request(tgbotapi.InlineConfig{
		InlineQueryID:     a.QueryID,
		Results:           results,
		CacheTime:         a.CacheTime,
		IsPersonal:        true,
		SwitchPMText:      a.SwitchPMText,
		SwitchPMParameter: a.SwitchPMParam,
	})
	if isExpiredQuery(err) {
		return fmt.Errorf("%w: %v", ErrQueryExpired, err)
	}
	return err
}

func article(r catalog.InlineResult) tgbotapi.InlineQueryResultArticle {
	a := tgbotapi.NewInlineQueryResultArticle(r.ID, r.Title, r.Body)
	a.InputMessageContent = tgbotapi.InputTextMessageContent{
		Text:                  r.Body,
		ParseMode:             tgbotapi.ModeMarkdown,
		DisableWebPagePreview: true,
	}
	a.Description = r.Description
	a.ThumbURL = PlaceholderThumbURL
	a.ReplyMarkup = Keyboard(r.Actions)
	return a
}

// AnswerCallback acknowledges a button press; alert shows a blocking dialog.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cb := tgbotapi.NewCallback(callbackID, text)
	if alert {
		cb = tgbotapi.NewCallbackWithAlert(callbackID, text)
	}
	_, err := c.api.Request(cb)
	return err
}

// SetWebhook registers the webhook with a secret token Telegram echoes back
// in every delivery. WebhookConfig has no secret_token field, so the request
// is built by hand.
func (c *Client) SetWebhook(url, secret string) error {
	params, err := webhookParams(url, secret)
	if err != nil {
		return err
	}
	_, err = c.api.MakeRequest("setWebhook", params)
	return err
}

func webhookParams(rawURL, secret string) (tgbotapi.Params, error) {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("webhook url: %w", err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("webhook url %q: must be an absolute https url", rawURL)
	}
	if secret == "" {
		return nil, errors.New("webhook secret is empty")
	}
	params := tgbotapi.Params{}
	params["url"] = u.String()
	params.AddNonEmpty("secret_token", secret)
	if err := params.AddInterface("allowed_updates", allowedUpdates); err != nil {
		return nil, err
	}
	return params, nil
}

func (c *Client) DeleteWebhook() error {
	_, err := c.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true})
	return err
}

var allowedUpdates = []string{"message", "callback_query", "inline_query"}

// Updates starts long polling. The channel closes after StopUpdates.
func (c *Client) Updates(timeout int) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeout
	u.AllowedUpdates = allowedUpdates
	return c.api.GetUpdatesChan(u)
}

func (c *Client) StopUpdates() { c.api.StopReceivingUpdates() }

func isExpiredQuery(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "query is too old") || strings.Contains(msg, "QUERY_ID_INVALID")
}
