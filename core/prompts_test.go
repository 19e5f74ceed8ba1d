package orchestration

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestCleanReplyForSpeech(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "bold and italic", input: "请介绍**项目**中的*难点*", expected: "请介绍项目中的难点"},
		{name: "code and header", input: "## 问题\n请解释`goroutine`", expected: "问题\n请解释goroutine"},
		{name: "link", input: "参考[文档](https://example.com)回答", expected: "参考文档回答"},
		{name: "blank lines and spaces", input: "第一行\n\n\n第二行   结束  ", expected: "第一行\n第二行 结束"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := cleanReplyForSpeech(testCase.input); got != testCase.expected {
				t.Fatalf("expected %q, got %q", testCase.expected, got)
			}
		})
	}
}

func TestCleanReplyForSpeechTruncatesLongReplies(t *testing.T) {
	got := cleanReplyForSpeech(strings.Repeat("问", 1200))

	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected truncated reply to end with ellipsis, got suffix %q", got[len(got)-3:])
	}
	if runes := utf8.RuneCountInString(got); runes != maxSpokenReplyRunes+3 {
		t.Fatalf("expected %d runes, got %d", maxSpokenReplyRunes+3, runes)
	}
}

func TestIsInterviewOver(t *testing.T) {
	if !isInterviewOver("好的，本次面试结束，感谢参与。") {
		t.Fatalf("expected sentinel phrase to end the interview")
	}
	if isInterviewOver("请介绍一下你最近的项目。") {
		t.Fatalf("expected a question not to end the interview")
	}
}

func TestCleanPolishedAnswer(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{input: "整理后的面试回答：我负责后端开发。", expected: "我负责后端开发。"},
		{input: "整理后的面试回答: 我负责后端开发。(说明: 删除了口头禅)", expected: "我负责后端开发。"},
		{input: "我负责后端开发。（说明：无）", expected: "我负责后端开发。"},
		{input: "我负责后端开发。", expected: "我负责后端开发。"},
	}

	for _, testCase := range testCases {
		if got := cleanPolishedAnswer(testCase.input); got != testCase.expected {
			t.Fatalf("expected %q for %q, got %q", testCase.expected, testCase.input, got)
		}
	}
}

func TestApologyDependsOnState(t *testing.T) {
	if got := apologyFor(StateGreeting); got != introductionApology {
		t.Fatalf("expected introduction apology while greeting, got %q", got)
	}
	if got := apologyFor(StateQuestioning); got != answerApology {
		t.Fatalf("expected answer apology while questioning, got %q", got)
	}
}
