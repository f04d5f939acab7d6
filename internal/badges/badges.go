// Package badges decides which achievement badges a child earns on a chat turn.
package badges

import (
	"strings"

	"github.com/BTreeMap/BraveCall/internal/models"
)

// Badge IDs.
const (
	FirstHello      = "first_hello"
	ChattyTurtle    = "chatty_turtle"
	KindSoul        = "kind_soul"
	CuriousExplorer = "curious_explorer"
)

// Definitions lists every badge in display order.
var Definitions = []models.Badge{
	{ID: FirstHello, Name: "First Hello", Icon: "👋", Description: "You said hi to Shelly!"},
	{ID: ChattyTurtle, Name: "Chatty Turtle", Icon: "🗣️", Description: "Sent 5 messages!"},
	{ID: KindSoul, Name: "Kind Soul", Icon: "💖", Description: "Used kind words!"},
	{ID: CuriousExplorer, Name: "Curious Explorer", Icon: "🔍", Description: "Asked a question!"},
}

var kindWords = []string{"please", "thank you", "love", "happy", "nice"}

// Definition returns the badge with the given ID.
func Definition(id string) (models.Badge, bool) {
	for _, b := range Definitions {
		if b.ID == id {
			return b, true
		}
	}
	return models.Badge{}, false
}

// Award returns the badges newly earned by message. totalUserMessages counts
// the child's messages including this one; earned holds badge IDs the child
// already has.
func Award(message string, totalUserMessages int, earned map[string]bool) []models.Badge {
	var out []models.Badge
	add := func(id string) {
		if earned[id] {
			return
		}
		if b, ok := Definition(id); ok {
			out = append(out, b)
		}
	}

	if totalUserMessages == 1 {
		add(FirstHello)
	}
	if totalUserMessages == 5 {
		add(ChattyTurtle)
	}
	lower := strings.ToLower(message)
	for _, w := range kindWords {
		if strings.Contains(lower, w) {
			add(KindSoul)
			break
		}
	}
	if strings.Contains(message, "?") {
		add(CuriousExplorer)
	}
	return out
}
