package catalog

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	callbackPrefix = "get_file_"
	imdbTitleURL   = "https://www.imdb.com/title/"

	LabelObtainFile = "Get Movie File"
	LabelWatch      = "Watch Online"
)

type ActionKind int

const (
	ActionObtainFile ActionKind = iota + 1
	ActionWatchExternally
)

// Action is a button under a rendered entry. Target holds callback data for
// ActionObtainFile and a URL for ActionWatchExternally.
type Action struct {
	Kind   ActionKind
	Label  string
	Target string
}

type Rendering struct {
	Text    string
	Actions []Action
}

type InlineResult struct {
	ID          string
	Title       string
	Description string
	Body        string
	Actions     []Action
}

// Assemble renders e as a Markdown message. The output depends on e only.
func Assemble(e Entry) Rendering {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s* (%d)\n", escape(e.Title), e.Year)
	if e.ExternalID != "" {
		fmt.Fprintf(&b, "IMDb: [Link](%s)\n", IMDbURL(e.ExternalID))
	}

	actions := make([]Action, 0, 2)
	if e.MediaRef != nil {
		actions = append(actions, Action{Kind: ActionObtainFile, Label: LabelObtainFile, Target: CallbackData(e.ExternalID)})
	}
	if e.ExternalLink != nil {
		actions = append(actions, Action{Kind: ActionWatchExternally, Label: LabelWatch, Target: *e.ExternalLink})
	}
	return Rendering{Text: b.String(), Actions: actions}
}

func AssembleInline(e Entry) InlineResult {
	r := Assemble(e)
	desc := fmt.Sprintf("Year: %d", e.Year)
	if e.ExternalID != "" {
		desc += " | IMDb: " + IMDbURL(e.ExternalID)
	}
	return InlineResult{
		ID:          e.ExternalID,
		Title:       fmt.Sprintf("%s (%d)", e.Title, e.Year),
		Description: desc,
		Body:        r.Text,
		Actions:     r.Actions,
	}
}

func IMDbURL(externalID string) string {
	return imdbTitleURL + externalID
}

func CallbackData(externalID string) string {
	return callbackPrefix + externalID
}

// ParseCallbackData extracts the external id from an "obtain file" payload.
func ParseCallbackData(data string) (string, bool) {
	if !strings.HasPrefix(data, callbackPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(data, callbackPrefix)
	return id, id != ""
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

// Caption is the text sent along with an entry's media file.
func Caption(e Entry) string {
	return fmt.Sprintf("Here is *%s*", escape(e.Title))
}
