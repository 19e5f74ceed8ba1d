package spark

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/koscakluka/ema-interview/core/llms"
	"github.com/koscakluka/ema-interview/internal/utils"
)

// structuredReply is the JSON object the model is asked to answer with.
type structuredReply struct {
	Reply         string `json:"reply" jsonschema:"description=接下来要对候选人说的话"`
	InterviewOver bool   `json:"interview_over" jsonschema:"description=面试是否已经结束"`
}

// replySchema returns the JSON schema of [structuredReply].
func replySchema() ([]byte, error) {
	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(&structuredReply{})
	return json.Marshal(schema)
}

func structuredInstructions() (string, error) {
	schema, err := replySchema()
	if err != nil {
		return "", fmt.Errorf("failed to build reply schema: %w", err)
	}
	return "请只输出一个符合以下JSON Schema的JSON对象，不要输出其他内容：\n" + string(schema), nil
}

// parseReply reads a structured reply from content. Content that is not a
// structured reply is returned as plain text.
func parseReply(content string) llms.Reply {
	content = strings.TrimSpace(content)

	candidate := content
	if split := strings.Split(content, "```"); len(split) > 2 {
		candidate = strings.TrimPrefix(strings.TrimSpace(split[1]), "json")
	}

	var reply structuredReply
	if err := json.Unmarshal([]byte(strings.TrimSpace(candidate)), &reply); err != nil ||
		strings.TrimSpace(reply.Reply) == "" {
		return llms.Reply{Text: content}
	}

	return llms.Reply{
		Text:          strings.TrimSpace(reply.Reply),
		InterviewOver: utils.Ptr(reply.InterviewOver),
	}
}
