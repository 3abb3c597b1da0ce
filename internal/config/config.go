// Package config provides configuration loading and management for quest.
package config

// Config is the root configuration.
type Config struct {
	Policy    PolicyConfig    `json:"policy"    mapstructure:"policy"`
	Pipeline  PipelineConfig  `json:"pipeline"  mapstructure:"pipeline"`
	Reasoning ReasoningConfig `json:"reasoning" mapstructure:"reasoning"`
	LLM       LLMConfig       `json:"llm"       mapstructure:"llm"`
	Retrieval RetrievalConfig `json:"retrieval" mapstructure:"retrieval"`
	Tools     ToolsConfig     `json:"tools"     mapstructure:"tools"`
	History   HistoryConfig   `json:"history"   mapstructure:"history"`
	Telemetry TelemetryConfig `json:"telemetry" mapstructure:"telemetry"`
	Server    ServerConfig    `json:"server"    mapstructure:"server"`
	Retention RetentionPolicy `json:"retention" mapstructure:"retention"`
}

// PolicyConfig is the default access policy applied to incoming runs.
type PolicyConfig struct {
	MaxReasoningRounds int    `json:"max_reasoning_rounds"      mapstructure:"max_reasoning_rounds"`
	MaxToolRounds      int    `json:"max_tool_rounds,omitempty" mapstructure:"max_tool_rounds"`
	ToolTier           string `json:"tool_tier,omitempty"       mapstructure:"tool_tier"`
	AllowRetrieval     bool   `json:"allow_retrieval"           mapstructure:"allow_retrieval"`
	AllowFileAccess    bool   `json:"allow_file_access"         mapstructure:"allow_file_access"`
}

// PipelineConfig tunes stage execution. Timeouts are in seconds.
type PipelineConfig struct {
	GlobalTimeoutSec int     `json:"global_timeout_sec,omitempty" mapstructure:"global_timeout_sec"`
	StageTimeoutSec  int     `json:"stage_timeout_sec,omitempty"  mapstructure:"stage_timeout_sec"`
	DeepTimeoutSec   int     `json:"deep_timeout_sec,omitempty"   mapstructure:"deep_timeout_sec"`
	HistoryLimit     int     `json:"history_limit,omitempty"      mapstructure:"history_limit"`
	TopK             int     `json:"top_k,omitempty"              mapstructure:"top_k"`
	MinScore         float64 `json:"min_score,omitempty"          mapstructure:"min_score"`
}

// ReasoningConfig tunes the convergence loop.
type ReasoningConfig struct {
	MaxRoundsCap        int     `json:"max_rounds_cap,omitempty"       mapstructure:"max_rounds_cap"`
	ConfidenceThreshold float64 `json:"confidence_threshold,omitempty" mapstructure:"confidence_threshold"`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty" mapstructure:"similarity_threshold"`
	TimeoutSec          int     `json:"timeout_sec,omitempty"          mapstructure:"timeout_sec"`
}

// LLMConfig selects the text-generation backend.
type LLMConfig struct {
	Model  string `json:"model,omitempty"   mapstructure:"model"`
	APIKey string `json:"api_key,omitempty" mapstructure:"api_key"`
}

// RetrievalConfig points at the retrieval service.
type RetrievalConfig struct {
	BaseURL string `json:"base_url,omitempty" mapstructure:"base_url"`
}

// ToolsConfig points at the tool-invocation service.
type ToolsConfig struct {
	Endpoint      string `json:"endpoint,omitempty"        mapstructure:"endpoint"`
	CallTimeoutMS int    `json:"call_timeout_ms,omitempty" mapstructure:"call_timeout_ms"`
}

// HistoryConfig points at the conversation-history cache.
type HistoryConfig struct {
	RedisAddr string `json:"redis_addr,omitempty" mapstructure:"redis_addr"`
	TTLHours  int    `json:"ttl_hours,omitempty"  mapstructure:"ttl_hours"`
}

// TelemetryConfig points at the telemetry publisher.
type TelemetryConfig struct {
	NATSURL string `json:"nats_url,omitempty" mapstructure:"nats_url"`
	Subject string `json:"subject,omitempty"  mapstructure:"subject"`
}

// ServerConfig tunes the HTTP server.
type ServerConfig struct {
	Addr string `json:"addr,omitempty" mapstructure:"addr"`
}

// RetentionPolicy defines how many old runs to keep.
type RetentionPolicy struct {
	KeepLast int `json:"keep_last,omitempty" mapstructure:"keep_last"`
	KeepDays int `json:"keep_days,omitempty" mapstructure:"keep_days"`
}

// Default returns the built-in configuration used when no file exists.
func Default() Config {
	return Config{
		Policy: PolicyConfig{
			MaxReasoningRounds: 5,
			AllowRetrieval:     true,
		},
		Reasoning: ReasoningConfig{
			MaxRoundsCap:        5,
			ConfidenceThreshold: 0.85,
			SimilarityThreshold: 0.9,
		},
		LLM:       LLMConfig{Model: "gemini-2.5-flash"},
		Server:    ServerConfig{Addr: ":8080"},
		Retention: RetentionPolicy{KeepLast: 100},
	}
}
