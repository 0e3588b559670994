package conversations

import (
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/techchat/server/internal/agent/model"
)

// Normalize clamps caller-supplied history to at most max turns, keeping the
// most recent ones in their original order. Roles other than the literal
// "model" become "user"; turns whose sanitized text is empty are dropped.
// Inputs that are not a sequence yield an empty slice.
func Normalize(raw any, max int) []model.ChatTurn {
	if max <= 0 {
		max = model.DefaultMaxHistoryItems
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case []map[string]any:
		items = make([]any, len(v))
		for i := range v {
			items[i] = v[i]
		}
	case []model.ChatTurn:
		items = make([]any, len(v))
		for i := range v {
			items[i] = v[i]
		}
	default:
		return []model.ChatTurn{}
	}

	items = trimTail(items, max)
	turns := make([]model.ChatTurn, 0, len(items))
	for _, item := range items {
		role, text := fields(item)
		turn := model.ChatTurn{Role: model.RoleUser, Text: Sanitize(text)}
		if role == string(model.RoleModel) {
			turn.Role = model.RoleModel
		}
		if turn.Text == "" {
			continue
		}
		turns = append(turns, turn)
	}
	return turns
}

func fields(item any) (role string, text any) {
	switch v := item.(type) {
	case map[string]any:
		role, _ = v["role"].(string)
		return role, v["text"]
	case model.ChatTurn:
		return string(v.Role), v.Text
	}
	return "", nil
}

func trimTail(items []any, max int) []any {
	if len(items) <= max {
		return items
	}
	return items[len(items)-max:]
}

// RenderTranscript flattens a conversation into one prompt for single-shot
// generation: the system instruction, the recent turns as "User:" /
// "Assistant:" lines, the new user turn and an open "Assistant:" cue, with
// blank lines between blocks.
func RenderTranscript(systemInstruction string, history []model.ChatTurn, message string) string {
	blocks := make([]string, 0, 4)
	if systemInstruction != "" {
		blocks = append(blocks, systemInstruction)
	}

	if len(history) > 0 {
		var ctxBuilder strings.Builder
		ctxBuilder.WriteString("Recent chat context:")
		for _, turn := range history {
			ctxBuilder.WriteString("\n")
			if turn.Role == model.RoleUser {
				ctxBuilder.WriteString("User: ")
			} else {
				ctxBuilder.WriteString("Assistant: ")
			}
			ctxBuilder.WriteString(turn.Text)
		}
		blocks = append(blocks, ctxBuilder.String())
	}

	blocks = append(blocks, "User: "+message, "Assistant:")
	return strings.Join(blocks, "\n\n")
}

// ToMessages maps a conversation to role-tagged chat messages: the system
// instruction, each history turn (model turns as assistant) and the new user
// message last.
func ToMessages(systemInstruction string, history []model.ChatTurn, message string) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(history)+2)
	msgs = append(msgs, schema.SystemMessage(systemInstruction))
	for _, turn := range history {
		if turn.Role == model.RoleModel {
			msgs = append(msgs, schema.AssistantMessage(turn.Text, nil))
			continue
		}
		msgs = append(msgs, schema.UserMessage(turn.Text))
	}
	return append(msgs, schema.UserMessage(message))
}
