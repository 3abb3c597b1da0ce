// Package workflows assembles pipelines from the collaborator set: the fast
// single-call sequence and the deep plan/reason/verify/synthesize sequence.
package workflows

import (
	"time"

	"github.com/metalagman/quest/internal/engine"
	"github.com/metalagman/quest/internal/history"
	"github.com/metalagman/quest/internal/llm"
	"github.com/metalagman/quest/internal/reason"
	"github.com/metalagman/quest/internal/retrieval"
	"github.com/metalagman/quest/internal/runctx"
	"github.com/metalagman/quest/internal/telemetry"
	"github.com/metalagman/quest/internal/tools"
)

const (
	defaultGlobalTimeout = 5 * time.Minute
	defaultStageTimeout  = 30 * time.Second
	defaultDeepTimeout   = 2 * time.Minute
	defaultHistoryLimit  = 10
	defaultTopK          = 5
	defaultMinScore      = 0.2
)

// Config tunes pipeline assembly. Zero values fall back to defaults.
type Config struct {
	GlobalTimeout time.Duration `json:"global_timeout" mapstructure:"global_timeout"`
	StageTimeout  time.Duration `json:"stage_timeout" mapstructure:"stage_timeout"`
	// DeepTimeout bounds the deep-reasoning stage; it also caps the
	// coordinator's internal loop timeout.
	DeepTimeout  time.Duration `json:"deep_timeout" mapstructure:"deep_timeout"`
	HistoryLimit int           `json:"history_limit" mapstructure:"history_limit"`
	TopK         int           `json:"top_k" mapstructure:"top_k"`
	MinScore     float64       `json:"min_score" mapstructure:"min_score"`
	Reasoning    reason.Config `json:"reasoning" mapstructure:"reasoning"`
}

func (c Config) withDefaults() Config {
	if c.GlobalTimeout <= 0 {
		c.GlobalTimeout = defaultGlobalTimeout
	}
	if c.StageTimeout <= 0 {
		c.StageTimeout = defaultStageTimeout
	}
	if c.DeepTimeout <= 0 {
		c.DeepTimeout = defaultDeepTimeout
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = defaultHistoryLimit
	}
	if c.TopK <= 0 {
		c.TopK = defaultTopK
	}
	if c.MinScore <= 0 {
		c.MinScore = defaultMinScore
	}
	return c
}

// Factory builds pipelines for incoming runs. All collaborators are
// optional: a nil collaborator degrades the matching stage to a no-op or a
// fail-open empty result.
type Factory struct {
	gen       llm.Generator
	searcher  retrieval.Searcher
	invoker   tools.Invoker
	histStore history.Store
	publisher telemetry.Publisher
	cfg       Config
}

// NewFactory wires a factory from the collaborator set.
func NewFactory(gen llm.Generator, searcher retrieval.Searcher, invoker tools.Invoker, histStore history.Store, publisher telemetry.Publisher, cfg Config) *Factory {
	if histStore == nil {
		histStore = history.Noop{}
	}
	if publisher == nil {
		publisher = telemetry.Noop{}
	}
	return &Factory{
		gen:       gen,
		searcher:  searcher,
		invoker:   invoker,
		histStore: histStore,
		publisher: publisher,
		cfg:       cfg.withDefaults(),
	}
}

// Build selects the stage sequence for the run's strategy.
func (f *Factory) Build(rc *runctx.Context) *engine.Pipeline {
	if rc.Strategy == runctx.StrategyDeep {
		return f.buildDeep()
	}
	return f.buildFast()
}

func (f *Factory) buildFast() *engine.Pipeline {
	return engine.New(f.cfg.GlobalTimeout,
		f.telemetryStartStage(),
		f.historyStage(),
		f.retrievalStage(),
		f.generateStage(),
		f.historySaveStage(),
		f.telemetryFinalStage(),
	)
}

func (f *Factory) buildDeep() *engine.Pipeline {
	return engine.New(f.cfg.GlobalTimeout,
		f.telemetryStartStage(),
		f.historyStage(),
		f.retrievalStage(),
		f.planStage(),
		f.deepReasoningStage(),
		f.verifyStage(),
		f.synthesisStage(),
		f.historySaveStage(),
		f.telemetryFinalStage(),
	)
}

func (f *Factory) stageConfig() engine.StageConfig {
	cfg := engine.DefaultConfig()
	cfg.Timeout = f.cfg.StageTimeout
	return cfg
}

func (f *Factory) silentConfig() engine.StageConfig {
	cfg := engine.SilentConfig()
	cfg.Timeout = f.cfg.StageTimeout
	return cfg
}
