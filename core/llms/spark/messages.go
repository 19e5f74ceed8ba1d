package spark

import (
	"github.com/jinzhu/copier"
	"github.com/koscakluka/ema-interview/core/llms"
)

type message struct {
	Role    messageRole `json:"role"`
	Content string      `json:"content"`
}

type messageRole string

const (
	messageRoleSystem messageRole = "system"
)

func toMessages(history []llms.Message) ([]message, error) {
	messages := []message{}
	if err := copier.Copy(&messages, history); err != nil {
		return nil, err
	}
	return messages, nil
}

// withInstructions appends instructions to the system message, adding one
// when the history has none.
func withInstructions(messages []message, instructions string) []message {
	if instructions == "" {
		return messages
	}
	if len(messages) > 0 && messages[0].Role == messageRoleSystem {
		messages[0].Content += "\n\n" + instructions
		return messages
	}
	return append([]message{{Role: messageRoleSystem, Content: instructions}}, messages...)
}
