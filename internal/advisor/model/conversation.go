package model

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
)

// Step identifies the conversation's current position in the advisory flow.
type Step string

const (
	StepAskName           Step = "ask_name"
	StepAskSalary         Step = "ask_salary"
	StepAdvice            Step = "advice" // transient: never observed at rest
	StepFollowup          Step = "followup"
	StepConversationEnded Step = "conversation_ended"
)

// ParseStep validates a raw step value. An unknown value means the stored
// conversation is corrupt and the caller must start a new conversation.
func ParseStep(v string) (Step, error) {
	switch Step(v) {
	case StepAskName, StepAskSalary, StepAdvice, StepFollowup, StepConversationEnded:
		return Step(v), nil
	default:
		return "", fmt.Errorf("unknown conversation step %q", v)
	}
}

// Valid reports whether the step is one of the known flow states.
func (s Step) Valid() bool {
	_, err := ParseStep(string(s))
	return err == nil
}

// Terminal reports whether the conversation has ended.
func (s Step) Terminal() bool {
	return s == StepConversationEnded
}

// Conversation is the per-conversation state record. It is owned exclusively
// by the request handler between calls and mutated in place by the flow
// machine. Name and Salary are set at most once and never overwritten;
// Messages and History are append-only.
type Conversation struct {
	ID     string  `json:"id"`
	Step   Step    `json:"step"`
	Name   string  `json:"name,omitempty"`
	Salary float64 `json:"salary,omitempty"`

	// Messages is the outward-facing transcript relayed to the caller.
	Messages []*schema.Message `json:"messages"`
	// History is the internal context log used to build follow-up prompts.
	// It is distinct from Messages and is never trimmed in place.
	History []*schema.Message `json:"history,omitempty"`

	// InitialAdvice is the first generated plan, retained for reuse in
	// follow-up prompts.
	InitialAdvice string `json:"initial_advice,omitempty"`

	// FollowupQuestion is supplied per request and consumed by the flow
	// machine; it is never persisted.
	FollowupQuestion string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversation returns a fresh, unstarted conversation for the given id.
func NewConversation(id string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so stores can hand out state without aliasing
// their internal record.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Messages = cloneMessages(c.Messages)
	cp.History = cloneMessages(c.History)
	return &cp
}

func cloneMessages(msgs []*schema.Message) []*schema.Message {
	if msgs == nil {
		return nil
	}
	out := make([]*schema.Message, len(msgs))
	for i, m := range msgs {
		if m == nil {
			continue
		}
		mc := *m
		out[i] = &mc
	}
	return out
}

// ConversationStore persists conversation state between request/response
// cycles. An id with no stored record is equivalent to a fresh, unstarted
// conversation, so Get returns (nil, nil) for unknown ids.
type ConversationStore interface {
	Get(ctx context.Context, id string) (*Conversation, error)
	Save(ctx context.Context, conv *Conversation) error
	Delete(ctx context.Context, id string) error
}
