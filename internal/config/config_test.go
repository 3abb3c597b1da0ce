package config

import "testing"

func TestValidateSettings_AcceptsMinimalConfig(t *testing.T) {
	t.Parallel()

	settings := map[string]any{
		"policy": map[string]any{
			"max_reasoning_rounds": 3,
			"allow_retrieval":      true,
		},
	}
	if err := ValidateSettings(settings); err != nil {
		t.Fatalf("ValidateSettings returned error: %v", err)
	}
}

func TestValidateSettings_AcceptsFullConfig(t *testing.T) {
	t.Parallel()

	settings := map[string]any{
		"policy": map[string]any{
			"max_reasoning_rounds": 5,
			"max_tool_rounds":      2,
			"tool_tier":            "standard",
			"allow_retrieval":      true,
			"allow_file_access":    false,
		},
		"pipeline": map[string]any{
			"global_timeout_sec": 300,
			"stage_timeout_sec":  30,
			"deep_timeout_sec":   120,
			"history_limit":      10,
			"top_k":              5,
			"min_score":          0.2,
		},
		"reasoning": map[string]any{
			"max_rounds_cap":       5,
			"confidence_threshold": 0.85,
			"similarity_threshold": 0.9,
			"timeout_sec":          120,
		},
		"llm":       map[string]any{"model": "gemini-2.5-flash"},
		"retrieval": map[string]any{"base_url": "http://localhost:9200"},
		"tools":     map[string]any{"endpoint": "http://localhost:7440/mcp", "call_timeout_ms": 2000},
		"history":   map[string]any{"redis_addr": "localhost:6379", "ttl_hours": 24},
		"telemetry": map[string]any{"nats_url": "nats://localhost:4222", "subject": "quest.events"},
		"server":    map[string]any{"addr": ":8080"},
		"retention": map[string]any{"keep_last": 100, "keep_days": 30},
	}
	if err := ValidateSettings(settings); err != nil {
		t.Fatalf("ValidateSettings returned error: %v", err)
	}
}

func TestValidateSettings_RejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	settings := map[string]any{
		"polcy": map[string]any{"max_reasoning_rounds": 3},
	}
	if err := ValidateSettings(settings); err == nil {
		t.Fatal("expected error for unknown top-level key")
	}
}

func TestValidateSettings_RejectsOutOfRangeThreshold(t *testing.T) {
	t.Parallel()

	settings := map[string]any{
		"reasoning": map[string]any{"confidence_threshold": 1.5},
	}
	if err := ValidateSettings(settings); err == nil {
		t.Fatal("expected error for confidence_threshold > 1")
	}
}

func TestValidateSettings_RejectsZeroRounds(t *testing.T) {
	t.Parallel()

	settings := map[string]any{
		"policy": map[string]any{"max_reasoning_rounds": 0},
	}
	if err := ValidateSettings(settings); err == nil {
		t.Fatal("expected error for max_reasoning_rounds < 1")
	}
}

func TestDefault_SaneValues(t *testing.T) {
	t.Parallel()

	cfg := Default()
	if cfg.Policy.MaxReasoningRounds < 1 {
		t.Fatalf("default max_reasoning_rounds = %d, want >= 1", cfg.Policy.MaxReasoningRounds)
	}
	if cfg.Reasoning.ConfidenceThreshold <= 0 || cfg.Reasoning.ConfidenceThreshold > 1 {
		t.Fatalf("default confidence_threshold = %v, want (0,1]", cfg.Reasoning.ConfidenceThreshold)
	}
	if cfg.Server.Addr == "" {
		t.Fatal("default server addr must not be empty")
	}
}
