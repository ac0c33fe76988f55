package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config adds application configuration fields to the common
// cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	AIEndpoint            string
	AIAPIKey              string
	AIModel               string
	DatabaseURL           string
	SlackWebhookURL       string
	DangerWordsPath       string
	BasePromptPath        string
	RiskThresholdHigh     int
	RiskThresholdMedium   int
	TriageMinConfidence   float64
	TriageDangerPenalty   float64
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.AIEndpoint, "ai-endpoint", "", "base URL of the OpenAI-compatible draft generation endpoint (empty = provider default)")
	fs.StringVar(&c.AIAPIKey, "ai-api-key", "", "API key for the draft generation endpoint (empty = heuristic fallback only)")
	fs.StringVar(&c.AIModel, "ai-model", "gpt-4o-mini", "model used for draft generation")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for escalation notifications")
	fs.StringVar(&c.DangerWordsPath, "danger-words-path", "", "path to the danger word dictionary (empty = built-in defaults)")
	fs.StringVar(&c.BasePromptPath, "base-prompt-path", "", "path to the system prompt template (empty = built-in default)")
	fs.IntVar(&c.RiskThresholdHigh, "risk-threshold-high", 70, "risk score at or above which a draft is flagged high risk (0..100)")
	fs.IntVar(&c.RiskThresholdMedium, "risk-threshold-medium", 50, "risk score at or above which a draft is medium risk (0..100)")
	fs.Float64Var(&c.TriageMinConfidence, "triage-min-confidence", 0.65, "combined confidence below which an edited draft escalates (0..1)")
	fs.Float64Var(&c.TriageDangerPenalty, "triage-danger-penalty", 0.1, "confidence penalty per danger word hit during review (0..1)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// The AI key is optional (fallback-only operation) but a key without
	// a model is unusable
	if c.AIAPIKey != "" && c.AIModel == "" {
		errs = append(errs, errors.New("AI_MODEL is required when AI_API_KEY is set"))
	}

	if c.RiskThresholdHigh < 0 || c.RiskThresholdHigh > 100 {
		errs = append(errs, fmt.Errorf("invalid RISK_THRESHOLD_HIGH %d (must be 0..100)", c.RiskThresholdHigh))
	}
	if c.RiskThresholdMedium < 0 || c.RiskThresholdMedium > 100 {
		errs = append(errs, fmt.Errorf("invalid RISK_THRESHOLD_MEDIUM %d (must be 0..100)", c.RiskThresholdMedium))
	}
	if c.RiskThresholdMedium > c.RiskThresholdHigh {
		errs = append(errs, fmt.Errorf("RISK_THRESHOLD_MEDIUM %d must not exceed RISK_THRESHOLD_HIGH %d", c.RiskThresholdMedium, c.RiskThresholdHigh))
	}

	if c.TriageMinConfidence < 0 || c.TriageMinConfidence > 1 {
		errs = append(errs, fmt.Errorf("invalid TRIAGE_MIN_CONFIDENCE %g (must be 0..1)", c.TriageMinConfidence))
	}
	if c.TriageDangerPenalty < 0 || c.TriageDangerPenalty > 1 {
		errs = append(errs, fmt.Errorf("invalid TRIAGE_DANGER_PENALTY %g (must be 0..1)", c.TriageDangerPenalty))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
