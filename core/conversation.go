package orchestration

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-interview/core/llms"
)

// Session is a point-in-time view of the interview.
type Session struct {
	ID            string
	State         State
	QuestionCount int
	History       []llms.Message
	StartedAt     time.Time
}

// Exchange is one answered question of the interview transcript.
type Exchange struct {
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	PolishedAnswer string    `json:"polished_answer,omitempty"`
	AskedAt        time.Time `json:"asked_at"`
	AnsweredAt     time.Time `json:"answered_at"`
}

// conversation owns the interview session. History is only appended between
// turns by the interview goroutine, readers get copies.
type conversation struct {
	mu sync.RWMutex

	session   Session
	exchanges []Exchange
}

func newConversation(systemPrompt string) *conversation {
	return &conversation{
		session: Session{
			ID:      uuid.NewString(),
			State:   StateInitial,
			History: []llms.Message{llms.SystemMessage(systemPrompt)},
		},
	}
}

func (c *conversation) ID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.ID
}

func (c *conversation) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.State
}

func (c *conversation) setState(to State, allowed func(from, to State) bool) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	from := c.session.State
	if !allowed(from, to) {
		return from, false
	}
	c.session.State = to
	return from, true
}

func (c *conversation) start(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.StartedAt = now
}

func (c *conversation) QuestionCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.QuestionCount
}

func (c *conversation) questionAsked() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.QuestionCount++
	return c.session.QuestionCount
}

func (c *conversation) Append(messages ...llms.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.History = append(c.session.History, messages...)
}

func (c *conversation) History() []llms.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	history := make([]llms.Message, len(c.session.History))
	copy(history, c.session.History)
	return history
}

func (c *conversation) Snapshot() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := c.session
	snapshot.History = make([]llms.Message, len(c.session.History))
	copy(snapshot.History, c.session.History)
	return snapshot
}

func (c *conversation) RecordExchange(exchange Exchange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exchanges = append(c.exchanges, exchange)
}

func (c *conversation) Exchanges() []Exchange {
	c.mu.RLock()
	defer c.mu.RUnlock()

	exchanges := make([]Exchange, len(c.exchanges))
	copy(exchanges, c.exchanges)
	return exchanges
}

func (c *conversation) setPolishedAnswer(index int, polished string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index >= 0 && index < len(c.exchanges) {
		c.exchanges[index].PolishedAnswer = polished
	}
}
