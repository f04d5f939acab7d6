package agents

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/BTreeMap/BraveCall/internal/genai"
	"github.com/BTreeMap/BraveCall/internal/models"
)

// historyWindow is how many prior messages are sent along with the current one.
const historyWindow = 5

var errNoJSONObject = errors.New("no JSON object in model output")

// stripFences removes markdown code fences the model sometimes wraps JSON in.
func stripFences(content string) string {
	cleaned := strings.ReplaceAll(content, "```json\n", "")
	cleaned = strings.ReplaceAll(cleaned, "```\n", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}

// parseJSONObject decodes a model reply into v. If the cleaned reply is not
// valid JSON, the outermost {...} span is tried before giving up.
func parseJSONObject(content string, v any) error {
	cleaned := stripFences(content)
	err := json.Unmarshal([]byte(cleaned), v)
	if err == nil {
		return nil
	}
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return errNoJSONObject
	}
	if err2 := json.Unmarshal([]byte(cleaned[start:end+1]), v); err2 != nil {
		return err
	}
	return nil
}

// generateJSON requests a JSON reply. An empty reply is returned as empty
// content so the caller's parser rejects it; only transport and service
// errors come back as err.
func generateJSON(ctx context.Context, llm genai.Generator, req genai.Request) (string, error) {
	req.JSONMode = true
	content, err := llm.Generate(ctx, req)
	if errors.Is(err, genai.ErrEmptyResponse) {
		return "", nil
	}
	return content, err
}

// buildMessages converts the tail of the conversation plus the current message
// into model messages. Anything not written by the child is sent as assistant text.
func buildMessages(message string, cc *models.ConversationContext) []genai.Message {
	var history []models.ChatMessage
	if cc != nil {
		history = cc.RecentMessages
	}
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	out := make([]genai.Message, 0, len(history)+1)
	for _, m := range history {
		role := genai.RoleAssistant
		if m.Role == models.RoleUser {
			role = genai.RoleUser
		}
		out = append(out, genai.Message{Role: role, Content: m.Content})
	}
	return append(out, genai.Message{Role: genai.RoleUser, Content: message})
}
