package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/FinMentor-core-poc-v1/server/internal/advisor/model"
)

//go:embed template/followup_prompt.txt
var followupPrompt string

// FollowupInput carries everything the follow-up prompt interpolates. History
// is expected to already be windowed to the most recent entries.
type FollowupInput struct {
	Name          string
	Salary        float64
	InitialAdvice string
	History       []*schema.Message
	Question      string
}

// RenderFollowup renders the follow-up prompt: recent history as bullet
// lines, the initial advice, and the verbatim question. Pure function of its
// inputs.
func RenderFollowup(ctx context.Context, cfg model.PromptConfig, in FollowupInput) (string, error) {
	initialAdvice := in.InitialAdvice
	if initialAdvice == "" {
		initialAdvice = "N/A"
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.UserMessage(followupPrompt),
	)
	vars := map[string]any{
		"AdvisorRegion":  cfg.AdvisorRegion,
		"CurrencySymbol": cfg.CurrencySymbol,
		"Name":           in.Name,
		"Salary":         FormatSalary(in.Salary),
		"InitialAdvice":  initialAdvice,
		"History":        historyBullets(in.History),
		"Question":       in.Question,
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("followup prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("followup prompt render: empty result")
	}
	return msgs[0].Content, nil
}

// historyBullets joins history entries as "- content" lines.
func historyBullets(history []*schema.Message) string {
	var b strings.Builder
	for _, m := range history {
		if m == nil || m.Content == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(m.Content)
	}
	return b.String()
}
