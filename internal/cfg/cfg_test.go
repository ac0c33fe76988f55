package cfg

import (
	"flag"
	"math"
	"strings"
	"testing"
)

// validBase returns a Config with all fields set to valid values.
func validBase() Config {
	return Config{
		DrainSeconds:          60,
		ShutdownBudgetSeconds: 90,
		APIPort:               8080,
		AIAPIKey:              "sk-test-key",
		AIModel:               "gpt-4o-mini",
		RiskThresholdHigh:     70,
		RiskThresholdMedium:   50,
		TriageMinConfidence:   0.65,
		TriageDangerPenalty:   0.1,
	}
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse empty args: %v", err)
	}

	if c.DrainSeconds != 60 {
		t.Errorf("DrainSeconds = %d, want 60", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 90 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 90", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", c.APIPort)
	}
	if c.AIModel != "gpt-4o-mini" {
		t.Errorf("AIModel = %q, want %q", c.AIModel, "gpt-4o-mini")
	}
	if c.RiskThresholdHigh != 70 {
		t.Errorf("RiskThresholdHigh = %d, want 70", c.RiskThresholdHigh)
	}
	if c.RiskThresholdMedium != 50 {
		t.Errorf("RiskThresholdMedium = %d, want 50", c.RiskThresholdMedium)
	}
	if c.TriageMinConfidence != 0.65 {
		t.Errorf("TriageMinConfidence = %g, want 0.65", c.TriageMinConfidence)
	}
	if c.TriageDangerPenalty != 0.1 {
		t.Errorf("TriageDangerPenalty = %g, want 0.1", c.TriageDangerPenalty)
	}
	// defaults must validate as-is: fallback-only, in-memory operation
	if err := c.Validate(); err != nil {
		t.Errorf("default config should validate, got: %v", err)
	}
}

func TestRegisterFlags_Override(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	args := []string{
		"-drain-seconds", "30",
		"-shutdown-budget-seconds", "120",
		"-http-port", "9090",
		"-ai-endpoint", "https://llm.internal/v1",
		"-ai-api-key", "sk-override",
		"-ai-model", "gpt-4o",
		"-database-url", "postgres://localhost/scribe",
		"-danger-words-path", "/etc/scribe/danger_words.txt",
		"-risk-threshold-high", "80",
		"-triage-min-confidence", "0.7",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	if c.DrainSeconds != 30 {
		t.Errorf("DrainSeconds = %d, want 30", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 120 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 120", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", c.APIPort)
	}
	if c.AIEndpoint != "https://llm.internal/v1" {
		t.Errorf("AIEndpoint = %q, want %q", c.AIEndpoint, "https://llm.internal/v1")
	}
	if c.AIAPIKey != "sk-override" {
		t.Errorf("AIAPIKey = %q, want %q", c.AIAPIKey, "sk-override")
	}
	if c.AIModel != "gpt-4o" {
		t.Errorf("AIModel = %q, want %q", c.AIModel, "gpt-4o")
	}
	if c.DatabaseURL != "postgres://localhost/scribe" {
		t.Errorf("DatabaseURL = %q, want %q", c.DatabaseURL, "postgres://localhost/scribe")
	}
	if c.DangerWordsPath != "/etc/scribe/danger_words.txt" {
		t.Errorf("DangerWordsPath = %q, want %q", c.DangerWordsPath, "/etc/scribe/danger_words.txt")
	}
	if c.RiskThresholdHigh != 80 {
		t.Errorf("RiskThresholdHigh = %d, want 80", c.RiskThresholdHigh)
	}
	if c.TriageMinConfidence != 0.7 {
		t.Errorf("TriageMinConfidence = %g, want 0.7", c.TriageMinConfidence)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	withBase := func(mutate func(*Config)) Config {
		c := validBase()
		mutate(&c)
		return c
	}

	tests := []struct {
		name      string
		cfg       Config
		wantErr   bool
		errSubstr []string // substrings that must appear in error message
	}{
		{
			name:    "base is valid",
			cfg:     validBase(),
			wantErr: false,
		},
		{
			name: "empty key is valid (fallback only)",
			cfg: withBase(func(c *Config) {
				c.AIAPIKey = ""
				c.AIModel = ""
			}),
			wantErr: false,
		},
		{
			name: "key without model",
			cfg: withBase(func(c *Config) {
				c.AIModel = ""
			}),
			wantErr:   true,
			errSubstr: []string{"AI_MODEL"},
		},
		// DrainSeconds boundaries
		{
			name:      "drain zero",
			cfg:       withBase(func(c *Config) { c.DrainSeconds = 0 }),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:      "drain above max",
			cfg:       withBase(func(c *Config) { c.DrainSeconds = 301; c.ShutdownBudgetSeconds = 302 }),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		// ShutdownBudgetSeconds boundaries
		{
			name:      "budget zero",
			cfg:       withBase(func(c *Config) { c.ShutdownBudgetSeconds = 0 }),
			wantErr:   true,
			errSubstr: []string{"SHUTDOWN_BUDGET_SECONDS"},
		},
		{
			name:      "budget equals drain",
			cfg:       withBase(func(c *Config) { c.ShutdownBudgetSeconds = c.DrainSeconds }),
			wantErr:   true,
			errSubstr: []string{"must be greater than"},
		},
		// APIPort boundaries
		{
			name:      "port zero",
			cfg:       withBase(func(c *Config) { c.APIPort = 0 }),
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		{
			name:      "port above max",
			cfg:       withBase(func(c *Config) { c.APIPort = 65536 }),
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		// Risk thresholds
		{
			name:      "high threshold above 100",
			cfg:       withBase(func(c *Config) { c.RiskThresholdHigh = 101 }),
			wantErr:   true,
			errSubstr: []string{"RISK_THRESHOLD_HIGH"},
		},
		{
			name:      "medium threshold negative",
			cfg:       withBase(func(c *Config) { c.RiskThresholdMedium = -1 }),
			wantErr:   true,
			errSubstr: []string{"RISK_THRESHOLD_MEDIUM"},
		},
		{
			name:      "medium above high",
			cfg:       withBase(func(c *Config) { c.RiskThresholdMedium = 80; c.RiskThresholdHigh = 70 }),
			wantErr:   true,
			errSubstr: []string{"must not exceed"},
		},
		{
			name:    "medium equals high",
			cfg:     withBase(func(c *Config) { c.RiskThresholdMedium = 70 }),
			wantErr: false,
		},
		// Triage knobs
		{
			name:      "min confidence above 1",
			cfg:       withBase(func(c *Config) { c.TriageMinConfidence = 1.5 }),
			wantErr:   true,
			errSubstr: []string{"TRIAGE_MIN_CONFIDENCE"},
		},
		{
			name:      "danger penalty negative",
			cfg:       withBase(func(c *Config) { c.TriageDangerPenalty = -0.1 }),
			wantErr:   true,
			errSubstr: []string{"TRIAGE_DANGER_PENALTY"},
		},
		// Error accumulation
		{
			name: "multiple fields invalid",
			cfg: Config{
				DrainSeconds: 0, ShutdownBudgetSeconds: 0, APIPort: 0,
				RiskThresholdHigh: -1, RiskThresholdMedium: -1,
				TriageMinConfidence: 2, TriageDangerPenalty: 2,
			},
			wantErr: true,
			errSubstr: []string{
				"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT",
				"RISK_THRESHOLD_HIGH", "RISK_THRESHOLD_MEDIUM",
				"TRIAGE_MIN_CONFIDENCE", "TRIAGE_DANGER_PENALTY",
			},
		},
		{
			name: "extreme negative values",
			cfg: Config{
				DrainSeconds: math.MinInt32, ShutdownBudgetSeconds: math.MinInt32,
				APIPort: math.MinInt32, RiskThresholdHigh: 70, RiskThresholdMedium: 50,
			},
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				errMsg := err.Error()
				for _, sub := range tt.errSubstr {
					if !strings.Contains(errMsg, sub) {
						t.Errorf("error %q does not contain %q", errMsg, sub)
					}
				}
			}
		})
	}
}

func FuzzValidate(f *testing.F) {
	// Seeds: defaults, boundaries, extremes
	seeds := []struct {
		drain, budget, port int
		high, medium        int
		minConf, penalty    float64
		key, model          string
	}{
		{60, 90, 8080, 70, 50, 0.65, 0.1, "sk-test", "gpt-4o-mini"},
		{1, 2, 1, 0, 0, 0, 0, "", ""},
		{299, 300, 65535, 100, 100, 1, 1, "k", "m"},
		{0, 0, 0, -1, -1, -1, -1, "", ""},
		{150, 100, 8080, 70, 50, 0.65, 0.1, "k", "m"},
		{60, 90, 8080, 50, 70, 0.65, 0.1, "k", ""},
		{math.MinInt32, math.MinInt32, math.MinInt32, 0, 0, 0, 0, "", ""},
		{math.MaxInt32, math.MaxInt32, math.MaxInt32, 101, 101, 2, 2, "", ""},
	}
	for _, s := range seeds {
		f.Add(s.drain, s.budget, s.port, s.high, s.medium, s.minConf, s.penalty, s.key, s.model)
	}

	f.Fuzz(func(t *testing.T, drain, budget, port, high, medium int, minConf, penalty float64, key, model string) {
		c := Config{
			DrainSeconds:          drain,
			ShutdownBudgetSeconds: budget,
			APIPort:               port,
			AIAPIKey:              key,
			AIModel:               model,
			RiskThresholdHigh:     high,
			RiskThresholdMedium:   medium,
			TriageMinConfidence:   minConf,
			TriageDangerPenalty:   penalty,
		}
		err := c.Validate()

		drainOK := drain >= 1 && drain <= 300
		budgetOK := budget >= 1 && budget <= 300
		portOK := port >= 1 && port <= 65535
		crossOK := budget > drain
		modelOK := key == "" || model != ""
		highOK := high >= 0 && high <= 100
		mediumOK := medium >= 0 && medium <= 100 && medium <= high
		confOK := minConf >= 0 && minConf <= 1
		penaltyOK := penalty >= 0 && penalty <= 1

		allValid := drainOK && budgetOK && portOK && crossOK && modelOK &&
			highOK && mediumOK && confOK && penaltyOK

		if allValid && err != nil {
			t.Errorf("expected no error for valid config %+v, got: %v", c, err)
		}
		if !allValid && err == nil {
			t.Errorf("expected error for invalid config %+v, got nil", c)
		}
	})
}
