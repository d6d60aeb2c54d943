package flow

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/FinMentor-core-poc-v1/server/internal/advisor/completion"
	"github.com/FinMentor-core-poc-v1/server/internal/advisor/model"
)

// stubCompleter returns a fixed reply, standing in for the Gemini client.
type stubCompleter struct {
	reply string
}

func (s stubCompleter) Complete(ctx context.Context, prompt string) string {
	return s.reply
}

// failingChatModel simulates a completion backend outage.
type failingChatModel struct{}

func (failingChatModel) Generate(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	return nil, errors.New("model unavailable")
}

func (failingChatModel) Stream(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("model unavailable")
}

func testPromptConfig() model.PromptConfig {
	return model.PromptConfig{AdvisorRegion: "Indian", CurrencySymbol: "₹"}
}

func newTestMachine(reply string) *Machine {
	return NewMachine(stubCompleter{reply: reply}, testPromptConfig(), model.ConversationConfig{HistoryWindow: 3})
}

// advanceToFollowup runs a conversation through name and salary collection
// into the followup state.
func advanceToFollowup(t *testing.T, m *Machine) *model.Conversation {
	t.Helper()
	conv := model.NewConversation("conv-1")
	m.EnterAskName(conv)
	conv.Name = "Asha"
	if err := m.EnterAskSalary(conv); err != nil {
		t.Fatalf("EnterAskSalary: %v", err)
	}
	conv.Salary = 50000
	if err := m.EnterAdvice(context.Background(), conv); err != nil {
		t.Fatalf("EnterAdvice: %v", err)
	}
	return conv
}

func TestEnterAskNameAppendsGreeting(t *testing.T) {
	m := newTestMachine("ok")
	conv := model.NewConversation("conv-1")

	m.EnterAskName(conv)

	if conv.Step != model.StepAskName {
		t.Errorf("expected step %q, got %q", model.StepAskName, conv.Step)
	}
	if len(conv.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(conv.Messages))
	}
	if !strings.Contains(conv.Messages[0].Content, "name") {
		t.Errorf("greeting should ask for the name, got %q", conv.Messages[0].Content)
	}
}

func TestEnterAskSalaryRequiresName(t *testing.T) {
	m := newTestMachine("ok")
	conv := model.NewConversation("conv-1")
	m.EnterAskName(conv)

	if err := m.EnterAskSalary(conv); !errors.Is(err, ErrMissingName) {
		t.Fatalf("expected ErrMissingName, got %v", err)
	}
	if conv.Step != model.StepAskName {
		t.Errorf("failed precondition must not transition, step is %q", conv.Step)
	}

	conv.Name = "Asha"
	if err := m.EnterAskSalary(conv); err != nil {
		t.Fatalf("EnterAskSalary with name: %v", err)
	}
	if conv.Step != model.StepAskSalary {
		t.Errorf("expected step %q, got %q", model.StepAskSalary, conv.Step)
	}
	last := conv.Messages[len(conv.Messages)-1]
	if !strings.Contains(last.Content, "Asha") {
		t.Errorf("salary request should be personalized with the name, got %q", last.Content)
	}
}

func TestEnterAdviceIsTransient(t *testing.T) {
	m := newTestMachine("invest in index funds")
	conv := advanceToFollowup(t, m)

	// The advice step is never observable at rest.
	if conv.Step != model.StepFollowup {
		t.Errorf("expected step %q after advice, got %q", model.StepFollowup, conv.Step)
	}
	if conv.InitialAdvice != "invest in index funds" {
		t.Errorf("expected initial advice retained, got %q", conv.InitialAdvice)
	}
	if len(conv.History) != 1 {
		t.Errorf("expected 1 history entry summarizing the advice, got %d", len(conv.History))
	}
	last := conv.Messages[len(conv.Messages)-1]
	if last.Content != "invest in index funds" {
		t.Errorf("advice should be appended to messages, got %q", last.Content)
	}
}

func TestEnterAdvicePreconditions(t *testing.T) {
	m := newTestMachine("ok")
	ctx := context.Background()

	conv := model.NewConversation("conv-1")
	if err := m.EnterAdvice(ctx, conv); !errors.Is(err, ErrMissingName) {
		t.Errorf("expected ErrMissingName, got %v", err)
	}

	conv.Name = "Asha"
	if err := m.EnterAdvice(ctx, conv); !errors.Is(err, ErrMissingSalary) {
		t.Errorf("expected ErrMissingSalary, got %v", err)
	}

	conv.Salary = -100
	if err := m.EnterAdvice(ctx, conv); !errors.Is(err, ErrMissingSalary) {
		t.Errorf("expected ErrMissingSalary for negative salary, got %v", err)
	}
}

func TestHandleFollowupFarewell(t *testing.T) {
	m := newTestMachine("ok")
	conv := advanceToFollowup(t, m)
	msgsBefore := len(conv.Messages)
	histBefore := len(conv.History)

	conv.FollowupQuestion = "thanks a lot!"
	if err := m.HandleFollowup(context.Background(), conv); err != nil {
		t.Fatalf("HandleFollowup: %v", err)
	}

	if conv.Step != model.StepConversationEnded {
		t.Errorf("expected step %q, got %q", model.StepConversationEnded, conv.Step)
	}
	if len(conv.Messages) != msgsBefore+1 {
		t.Errorf("expected exactly one farewell message, got %d new", len(conv.Messages)-msgsBefore)
	}
	if len(conv.History) != histBefore {
		t.Errorf("farewell must not touch history, got %d new entries", len(conv.History)-histBefore)
	}
	farewell := conv.Messages[len(conv.Messages)-1]
	if !strings.Contains(farewell.Content, "Asha") {
		t.Errorf("farewell should reference the name, got %q", farewell.Content)
	}
}

func TestHandleFollowupQuestion(t *testing.T) {
	m := newTestMachine("consider ELSS for tax saving")
	conv := advanceToFollowup(t, m)
	msgsBefore := len(conv.Messages)
	histBefore := len(conv.History)

	conv.FollowupQuestion = "what about tax saving?"
	if err := m.HandleFollowup(context.Background(), conv); err != nil {
		t.Fatalf("HandleFollowup: %v", err)
	}

	if conv.Step != model.StepFollowup {
		t.Errorf("expected to stay in %q, got %q", model.StepFollowup, conv.Step)
	}
	if got := len(conv.History) - histBefore; got != 2 {
		t.Errorf("expected exactly 2 new history entries, got %d", got)
	}
	if got := len(conv.Messages) - msgsBefore; got != 1 {
		t.Errorf("expected exactly 1 new message, got %d", got)
	}
	if conv.FollowupQuestion != "" {
		t.Errorf("follow-up question should be consumed, got %q", conv.FollowupQuestion)
	}
	last := conv.Messages[len(conv.Messages)-1]
	if last.Content != "consider ELSS for tax saving" {
		t.Errorf("answer should be appended to messages, got %q", last.Content)
	}
}

func TestHandleFollowupPreconditions(t *testing.T) {
	m := newTestMachine("ok")
	ctx := context.Background()
	conv := advanceToFollowup(t, m)

	if err := m.HandleFollowup(ctx, conv); !errors.Is(err, ErrMissingQuestion) {
		t.Errorf("expected ErrMissingQuestion, got %v", err)
	}

	conv.FollowupQuestion = "bye"
	if err := m.HandleFollowup(ctx, conv); err != nil {
		t.Fatalf("HandleFollowup farewell: %v", err)
	}
	conv.FollowupQuestion = "one more thing"
	if err := m.HandleFollowup(ctx, conv); !errors.Is(err, ErrConversationEnded) {
		t.Errorf("expected ErrConversationEnded, got %v", err)
	}
}

func TestHandleFollowupCorruptStep(t *testing.T) {
	m := newTestMachine("ok")
	conv := advanceToFollowup(t, m)
	conv.Step = model.Step("weird")
	conv.FollowupQuestion = "what about gold?"

	if err := m.HandleFollowup(context.Background(), conv); !errors.Is(err, ErrCorruptState) {
		t.Errorf("expected ErrCorruptState, got %v", err)
	}
}

func TestMessagesLengthMonotonic(t *testing.T) {
	m := newTestMachine("ok")
	conv := model.NewConversation("conv-1")
	prev := 0

	check := func(stage string) {
		t.Helper()
		if len(conv.Messages) < prev {
			t.Fatalf("messages shrank at %s: %d -> %d", stage, prev, len(conv.Messages))
		}
		prev = len(conv.Messages)
	}

	m.EnterAskName(conv)
	check("ask_name")
	conv.Name = "Asha"
	if err := m.EnterAskSalary(conv); err != nil {
		t.Fatal(err)
	}
	check("ask_salary")
	conv.Salary = 50000
	if err := m.EnterAdvice(context.Background(), conv); err != nil {
		t.Fatal(err)
	}
	check("advice")
	for _, q := range []string{"what about tax saving?", "how big an emergency fund?", "thanks"} {
		conv.FollowupQuestion = q
		if err := m.HandleFollowup(context.Background(), conv); err != nil {
			t.Fatal(err)
		}
		check("followup " + q)
	}
}

func TestNameAndSalaryImmutableUnderFollowups(t *testing.T) {
	m := newTestMachine("ok")
	conv := advanceToFollowup(t, m)

	for i := 0; i < 5; i++ {
		conv.FollowupQuestion = "should I increase my SIP?"
		if err := m.HandleFollowup(context.Background(), conv); err != nil {
			t.Fatal(err)
		}
	}

	if conv.Name != "Asha" || conv.Salary != 50000 {
		t.Errorf("name/salary changed by followups: %q / %v", conv.Name, conv.Salary)
	}
}

func TestFallbackOnCompletionFailure(t *testing.T) {
	completer := completion.NewFromChatModel(failingChatModel{}, "test-model")
	m := NewMachine(completer, testPromptConfig(), model.ConversationConfig{HistoryWindow: 3})
	conv := advanceToFollowup(t, m)

	if conv.InitialAdvice != completion.FallbackAdvice {
		t.Errorf("expected fallback advice, got %q", conv.InitialAdvice)
	}

	conv.FollowupQuestion = "what about tax saving?"
	if err := m.HandleFollowup(context.Background(), conv); err != nil {
		t.Fatalf("HandleFollowup with failing model: %v", err)
	}
	last := conv.Messages[len(conv.Messages)-1]
	if last.Content != completion.FallbackAdvice {
		t.Errorf("expected fallback answer, got %q", last.Content)
	}
}

// A serialized and restored conversation must resume exactly like an
// uninterrupted one.
func TestRoundTripResume(t *testing.T) {
	ctx := context.Background()
	m := newTestMachine("stick to the 50-30-20 split")

	direct := advanceToFollowup(t, m)
	direct.FollowupQuestion = "what about tax saving?"
	if err := m.HandleFollowup(ctx, direct); err != nil {
		t.Fatal(err)
	}

	interrupted := advanceToFollowup(t, m)
	b, err := json.Marshal(interrupted)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var restored model.Conversation
	if err := json.Unmarshal(b, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	restored.FollowupQuestion = "what about tax saving?"
	if err := m.HandleFollowup(ctx, &restored); err != nil {
		t.Fatal(err)
	}

	if restored.Step != direct.Step {
		t.Errorf("step diverged: %q vs %q", restored.Step, direct.Step)
	}
	if len(restored.Messages) != len(direct.Messages) {
		t.Fatalf("message count diverged: %d vs %d", len(restored.Messages), len(direct.Messages))
	}
	for i := range direct.Messages {
		if restored.Messages[i].Content != direct.Messages[i].Content {
			t.Errorf("message %d diverged: %q vs %q", i, restored.Messages[i].Content, direct.Messages[i].Content)
		}
	}
	if len(restored.History) != len(direct.History) {
		t.Errorf("history count diverged: %d vs %d", len(restored.History), len(direct.History))
	}
}

func TestFarewellTriggerVariants(t *testing.T) {
	cases := []struct {
		question string
		ends     bool
	}{
		{"thanks a lot!", true},
		{"Thank you so much", true},
		{"GOODBYE", true},
		{"that's all for now", true},
		{"no more questions please", true},
		{"I am done here", true},
		{"what about tax saving?", false},
		{"how much insurance do I need?", false},
	}

	for _, tc := range cases {
		m := newTestMachine("ok")
		conv := advanceToFollowup(t, m)
		conv.FollowupQuestion = tc.question
		if err := m.HandleFollowup(context.Background(), conv); err != nil {
			t.Fatalf("%q: %v", tc.question, err)
		}
		ended := conv.Step == model.StepConversationEnded
		if ended != tc.ends {
			t.Errorf("%q: ended = %v, want %v", tc.question, ended, tc.ends)
		}
	}
}
