package tg

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"moviefilter-bot/internal/catalog"
)

// Keyboard lays actions out one per row. No actions means no keyboard.
func Keyboard(actions []catalog.Action) *tgbotapi.InlineKeyboardMarkup {
	if len(actions) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(actions))
	for _, a := range actions {
		switch a.Kind {
		case catalog.ActionObtainFile:
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(a.Label, a.Target)))
		case catalog.ActionWatchExternally:
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(a.Label, a.Target)))
		}
	}
	if len(rows) == 0 {
		return nil
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}
