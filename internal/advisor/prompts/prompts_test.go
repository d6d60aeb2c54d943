package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/FinMentor-core-poc-v1/server/internal/advisor/model"
)

func testPromptConfig() model.PromptConfig {
	return model.PromptConfig{AdvisorRegion: "Indian", CurrencySymbol: "₹"}
}

func TestRenderAdvice(t *testing.T) {
	got, err := RenderAdvice(context.Background(), testPromptConfig(), "Asha", 50000)
	if err != nil {
		t.Fatalf("RenderAdvice: %v", err)
	}

	for _, want := range []string{"Asha", "₹50000", "Indian", "emergency fund", "other questions"} {
		if !strings.Contains(got, want) {
			t.Errorf("advice prompt missing %q:\n%s", want, got)
		}
	}
}

func TestRenderAdviceFractionalSalary(t *testing.T) {
	got, err := RenderAdvice(context.Background(), testPromptConfig(), "Asha", 50000.50)
	if err != nil {
		t.Fatalf("RenderAdvice: %v", err)
	}
	if !strings.Contains(got, "₹50000.5") {
		t.Errorf("expected fractional salary preserved:\n%s", got)
	}
}

func TestRenderFollowup(t *testing.T) {
	in := FollowupInput{
		Name:          "Asha",
		Salary:        50000,
		InitialAdvice: "save 20 percent",
		History: []*schema.Message{
			schema.SystemMessage("Initial advice given for Asha"),
			schema.UserMessage("Follow-up question: what about gold?"),
			schema.AssistantMessage("Follow-up response: keep it under 10 percent", nil),
		},
		Question: "what about tax saving?",
	}

	got, err := RenderFollowup(context.Background(), testPromptConfig(), in)
	if err != nil {
		t.Fatalf("RenderFollowup: %v", err)
	}

	for _, want := range []string{
		"Asha",
		"₹50000",
		"save 20 percent",
		`"what about tax saving?"`,
		"- Follow-up question: what about gold?",
		"- Follow-up response: keep it under 10 percent",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("followup prompt missing %q:\n%s", want, got)
		}
	}
}

func TestRenderFollowupWithoutAdvice(t *testing.T) {
	got, err := RenderFollowup(context.Background(), testPromptConfig(), FollowupInput{
		Name:     "Asha",
		Salary:   50000,
		Question: "where do I start?",
	})
	if err != nil {
		t.Fatalf("RenderFollowup: %v", err)
	}
	if !strings.Contains(got, "N/A") {
		t.Errorf("expected N/A placeholder for missing initial advice:\n%s", got)
	}
}

func TestHistoryBulletsSkipsEmptyEntries(t *testing.T) {
	got := historyBullets([]*schema.Message{
		nil,
		schema.UserMessage(""),
		schema.UserMessage("only entry"),
	})
	if got != "- only entry" {
		t.Errorf("expected single bullet, got %q", got)
	}
}
