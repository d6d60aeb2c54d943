package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/FinMentor-core-poc-v1/server/internal/advisor/model"
)

//go:embed template/advice_prompt.txt
var advicePrompt string

// RenderAdvice renders the initial advice prompt from the user's name and
// monthly salary. Pure function of its inputs.
func RenderAdvice(ctx context.Context, cfg model.PromptConfig, name string, salary float64) (string, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.UserMessage(advicePrompt),
	)
	vars := map[string]any{
		"AdvisorRegion":  cfg.AdvisorRegion,
		"CurrencySymbol": cfg.CurrencySymbol,
		"Name":           name,
		"Salary":         FormatSalary(salary),
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("advice prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("advice prompt render: empty result")
	}
	return msgs[0].Content, nil
}

// FormatSalary renders the salary without a trailing ".0" for whole amounts.
func FormatSalary(salary float64) string {
	return strconv.FormatFloat(salary, 'f', -1, 64)
}
