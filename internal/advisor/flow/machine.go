// Package flow implements the conversation state machine for the advisory
// flow: ask_name -> ask_salary -> advice (transient) -> followup (self-loop)
// -> conversation_ended.
package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/FinMentor-core-poc-v1/server/internal/advisor/completion"
	"github.com/FinMentor-core-poc-v1/server/internal/advisor/model"
	"github.com/FinMentor-core-poc-v1/server/internal/advisor/prompts"
	logx "github.com/FinMentor-core-poc-v1/server/pkg/logger"
)

// Precondition violations are caller/integration bugs, not user-facing
// errors. They are rejected before the transition mutates anything.
var (
	ErrMissingName     = errors.New("conversation has no name recorded")
	ErrMissingSalary   = errors.New("conversation has no positive salary recorded")
	ErrMissingQuestion = errors.New("no follow-up question supplied")
	// ErrConversationEnded is returned for operations on an already-finished
	// conversation; the caller should have discarded it.
	ErrConversationEnded = errors.New("conversation already ended")
	// ErrCorruptState means the stored step value is unknown; the only
	// recovery is to discard the conversation and start over.
	ErrCorruptState = errors.New("conversation state is corrupt")
)

// farewellTriggers end the conversation when any of them appears as a
// case-insensitive substring of the follow-up question.
var farewellTriggers = []string{
	"thanks", "thank you", "bye", "goodbye", "that's all", "no more questions",
	"that's enough", "done", "finish", "end", "exit", "quit",
}

const defaultHistoryWindow = 3

// Machine owns the per-state transitions. It holds no per-conversation state
// itself: all state lives on the Conversation passed into each operation, so
// one Machine serves any number of conversations concurrently as long as the
// caller serializes operations per conversation id.
type Machine struct {
	completer     completion.Completer
	promptCfg     model.PromptConfig
	historyWindow int
}

func NewMachine(completer completion.Completer, promptCfg model.PromptConfig, convCfg model.ConversationConfig) *Machine {
	window := convCfg.HistoryWindow
	if window <= 0 {
		window = defaultHistoryWindow
	}
	return &Machine{
		completer:     completer,
		promptCfg:     promptCfg,
		historyWindow: window,
	}
}

// EnterAskName starts the conversation: greets the user and asks for their
// name. It has no preconditions and cannot fail.
func (m *Machine) EnterAskName(conv *model.Conversation) {
	conv.Step = model.StepAskName
	appendAssistant(conv, "Hi! What is your name?")
	touch(conv)

	logx.Debug().Str("conversation_id", conv.ID).Msg("Entered ask_name")
}

// EnterAskSalary asks for the monthly salary, personalized with the recorded
// name. Requires a non-empty name.
func (m *Machine) EnterAskSalary(conv *model.Conversation) error {
	if strings.TrimSpace(conv.Name) == "" {
		return ErrMissingName
	}

	conv.Step = model.StepAskSalary
	appendAssistant(conv, fmt.Sprintf(
		"Namaste %s! 👋 I'm your friendly %s financial advisor, here to guide you with smart budgeting, "+
			"savings, investments, and insurance tips. To get started, could you please share your monthly salary?",
		conv.Name, m.promptCfg.AdvisorRegion))
	touch(conv)

	logx.Debug().Str("conversation_id", conv.ID).Msg("Entered ask_salary")
	return nil
}

// EnterAdvice generates the initial financial plan and immediately advances
// to followup; the advice step is never observable at rest. Requires name and
// a positive salary.
func (m *Machine) EnterAdvice(ctx context.Context, conv *model.Conversation) error {
	if strings.TrimSpace(conv.Name) == "" {
		return ErrMissingName
	}
	if conv.Salary <= 0 {
		return ErrMissingSalary
	}

	conv.Step = model.StepAdvice

	prompt, err := prompts.RenderAdvice(ctx, m.promptCfg, conv.Name, conv.Salary)
	if err != nil {
		return fmt.Errorf("render advice prompt: %w", err)
	}

	advice := m.completer.Complete(ctx, prompt)
	conv.InitialAdvice = advice

	conv.History = append(conv.History, schema.SystemMessage(fmt.Sprintf(
		"Initial advice given for %s (salary: %s%s): %s",
		conv.Name, m.promptCfg.CurrencySymbol, prompts.FormatSalary(conv.Salary), advice)))
	appendAssistant(conv, advice)

	// Advance straight to followup so more questions can come in.
	conv.Step = model.StepFollowup
	touch(conv)

	logx.Debug().Str("conversation_id", conv.ID).Int("advice_len", len(advice)).
		Msg("Advice generated, entered followup")
	return nil
}

// HandleFollowup answers one follow-up question, or ends the conversation
// when the question contains a farewell phrase. Requires a question; the
// question is consumed either way.
func (m *Machine) HandleFollowup(ctx context.Context, conv *model.Conversation) error {
	if conv.Step.Terminal() {
		return ErrConversationEnded
	}
	if !conv.Step.Valid() {
		return fmt.Errorf("%w: step %q", ErrCorruptState, conv.Step)
	}

	question := strings.TrimSpace(conv.FollowupQuestion)
	if question == "" {
		return ErrMissingQuestion
	}
	conv.FollowupQuestion = ""

	conv.Step = model.StepFollowup

	if wantsToEnd(question) {
		conv.Step = model.StepConversationEnded
		appendAssistant(conv, fmt.Sprintf(
			"You're welcome, %s! I'm glad I could help with your financial planning. "+
				"Best of luck with your financial goals!", conv.Name))
		touch(conv)

		logx.Debug().Str("conversation_id", conv.ID).Msg("Conversation ended by user")
		return nil
	}

	prompt, err := prompts.RenderFollowup(ctx, m.promptCfg, prompts.FollowupInput{
		Name:          conv.Name,
		Salary:        conv.Salary,
		InitialAdvice: conv.InitialAdvice,
		History:       trimTail(conv.History, m.historyWindow),
		Question:      question,
	})
	if err != nil {
		return fmt.Errorf("render followup prompt: %w", err)
	}

	answer := m.completer.Complete(ctx, prompt)

	conv.History = append(conv.History,
		schema.UserMessage(fmt.Sprintf("Follow-up question: %s", question)),
		schema.AssistantMessage(fmt.Sprintf("Follow-up response: %s", answer), nil),
	)
	appendAssistant(conv, answer)
	touch(conv)

	logx.Debug().Str("conversation_id", conv.ID).Int("history_len", len(conv.History)).
		Msg("Follow-up answered, staying in followup")
	return nil
}

// wantsToEnd checks the question against the fixed farewell phrase set.
func wantsToEnd(question string) bool {
	lower := strings.ToLower(question)
	for _, phrase := range farewellTriggers {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func appendAssistant(conv *model.Conversation, content string) {
	conv.Messages = append(conv.Messages, schema.AssistantMessage(content, nil))
}

func touch(conv *model.Conversation) {
	conv.UpdatedAt = time.Now().UTC()
}

// trimTail returns a copy of the last maxEntries messages.
func trimTail(messages []*schema.Message, maxEntries int) []*schema.Message {
	if len(messages) <= maxEntries {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-maxEntries:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
