package orchestration

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	greetingPrompt = "您好，欢迎参加本次面试。请先进行简单的自我介绍。"
	answerCue      = "请开始回答"
	goodbyePrompt  = "感谢您的参与，本次面试结束。祝您一切顺利！"
	fallbackReply  = "对不起，我暂时无法生成回复，请稍后再试。"

	introductionApology = "抱歉，我没有听清楚您的自我介绍。请您重新进行自我介绍。"
	answerApology       = "抱歉，我没有听清楚您的回答。请您重新回答这个问题。"

	interviewOverPhrase = "面试结束"

	maxSpokenReplyRunes = 1000
)

const defaultSystemPrompt = "你现在是一个专业的AI面试官，正在进行一场真实的面试。请严格按照以下要求：\n" +
	"1. 面试目标：全面考察候选人的专业知识水平、技能匹配度、语言表达能力、逻辑思维能力、创新能力、应变抗压能力。\n" +
	"2. 面试流程：每轮只问一个问题，不要进行中间评价，让面试更自然流畅。\n" +
	"3. 问题设计：根据候选人的回答和简历，动态生成下一个有针对性的问题，逐步深入考察各个维度。\n" +
	"4. 面试结束：当你认为已经充分考察了候选人的各项能力，或者已经问了足够多的问题时，主动说'面试结束'并礼貌告别。\n" +
	"5. 输出格式：只输出下一个问题，不要评价，不要一次性输出多个问题。\n" +
	"请记住：这是一场真实的面试，保持专业、自然、流畅的对话节奏。"

const polishInstructions = "你是面试AI助手。请将用户的原始回答进行专业、流畅的整理，只输出整理后的面试回答，不要输出任何说明、处理过程或分析。" +
	"请严格基于用户原始回答，不得添加、虚构或编造任何未出现的信息。" +
	"输出格式示例：\n整理后的面试回答：xxx\n" +
	"用户原始回答：\n"

// apologyFor returns the prompt used once an answer could not be heard after
// every retry.
func apologyFor(state State) string {
	if state == StateInitial || state == StateGreeting {
		return introductionApology
	}
	return answerApology
}

// isInterviewOver is the fallback end-of-interview predicate for replies that
// carry no structured flag.
func isInterviewOver(reply string) bool {
	return strings.Contains(reply, interviewOverPhrase)
}

var (
	boldPattern      = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicPattern    = regexp.MustCompile(`\*(.*?)\*`)
	codePattern      = regexp.MustCompile("`(.*?)`")
	headerPattern    = regexp.MustCompile(`#+\s*`)
	linkPattern      = regexp.MustCompile(`\[(.*?)\]\(.*?\)`)
	blankLinePattern = regexp.MustCompile(`\n\s*\n`)
	spacesPattern    = regexp.MustCompile(` +`)
)

// cleanReplyForSpeech strips markdown the synthesizer would read out loud and
// truncates overly long replies.
func cleanReplyForSpeech(text string) string {
	text = boldPattern.ReplaceAllString(text, "$1")
	text = italicPattern.ReplaceAllString(text, "$1")
	text = codePattern.ReplaceAllString(text, "$1")
	text = headerPattern.ReplaceAllString(text, "")
	text = linkPattern.ReplaceAllString(text, "$1")

	for blankLinePattern.MatchString(text) {
		text = blankLinePattern.ReplaceAllString(text, "\n")
	}
	text = spacesPattern.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	if utf8.RuneCountInString(text) > maxSpokenReplyRunes {
		text = string([]rune(text)[:maxSpokenReplyRunes]) + "..."
	}
	return text
}

var (
	polishNotePattern   = regexp.MustCompile(`[（(]说明[:：]`)
	polishPrefixPattern = regexp.MustCompile(`^整理后的面试回答[:：]\s*`)
)

func polishPrompt(answer string) string {
	return polishInstructions + strings.TrimSpace(answer)
}

// cleanPolishedAnswer drops the label and any trailing explanation the model
// adds around a polished answer.
func cleanPolishedAnswer(text string) string {
	if loc := polishNotePattern.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}
	text = strings.TrimSpace(text)
	return polishPrefixPattern.ReplaceAllString(text, "")
}
