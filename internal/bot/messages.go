package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	msgStart = "Hi! Send me a movie title and I'll look it up in my catalog.\n" +
		"You can also search from any chat by typing my username followed by a title."
	msgHelp = "Send a movie title, or part of one, to search the catalog.\n" +
		"Use the buttons under a result to get the file or watch online."
	msgAdminHelp = "\n\nAdmin:\n" +
		"/addmovie Title | Year | IMDbID | FileID | ThumbID | Link\n" +
		"Use None for a missing optional field. Re-adding an IMDb ID replaces the entry."
	msgAddUsage = "Usage: /addmovie Title | Year | IMDbID | FileID | ThumbID | Link\n" +
		"FileID, ThumbID and Link are optional; use None to skip one."

	msgUnavailable  = "The movie catalog is unavailable right now. Please try again later."
	msgRateLimited  = "You're searching too fast. Please slow down a little."
	msgNotSaved     = "Error: the catalog is unavailable, the movie was not saved."
	msgSending      = "Sending your movie!"
	msgFileNotFound = "Movie file not found in the database."
	msgDeliveryFail = "Couldn't send the file. Please try again later."

	inlineHint        = "Type a movie title to search!"
	inlineHintParam   = "start"
	inlineLimitedHint = "Too many searches, slow down a little."
	inlineHintCache   = 5
)

func msgNotFound(query string) string {
	return fmt.Sprintf("Sorry, I couldn't find '%s' in my database.", escape(query))
}

func msgAdded(title, externalID string) string {
	return fmt.Sprintf("Movie '%s' added successfully with IMDb ID %s!", escape(title), escape(externalID))
}

func msgInvalid(reason string) string {
	return "Error: " + escape(reason)
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}
