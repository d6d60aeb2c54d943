package model

// ================ Config ================
type ConversationConfig struct {
	TTL string `envconfig:"CONVERSATION_TTL" default:"30m"`
	// HistoryWindow is how many recent history entries are folded into the
	// follow-up prompt context.
	HistoryWindow int `envconfig:"CONVERSATION_HISTORY_WINDOW" default:"3"`
}

type AdvisorModelConfig struct {
	Model       string  `envconfig:"GEMINI_MODEL" default:"gemini-1.5-flash"`
	MaxTokens   int     `envconfig:"GEMINI_MAX_TOKENS" default:"2048"`
	Temperature float32 `envconfig:"GEMINI_TEMPERATURE" default:"0.7"`
}

type PromptConfig struct {
	// AdvisorRegion flavors the advisor persona and the investment vehicles
	// it recommends (e.g. "Indian" -> SIPs, PPF, ELSS).
	AdvisorRegion  string `envconfig:"PROMPT_ADVISOR_REGION" default:"Indian"`
	CurrencySymbol string `envconfig:"PROMPT_CURRENCY_SYMBOL" default:"₹"`
}
