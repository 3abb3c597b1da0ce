package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/metalagman/quest/internal/config"
	"github.com/metalagman/quest/internal/history"
	"github.com/metalagman/quest/internal/llm"
	"github.com/metalagman/quest/internal/retrieval"
	"github.com/metalagman/quest/internal/runlog"
	"github.com/metalagman/quest/internal/telemetry"
	"github.com/metalagman/quest/internal/tools"
	"github.com/metalagman/quest/internal/workflows"
	"github.com/rs/zerolog/log"
)

func openRunLog() (*sql.DB, string, func(), error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, "", func() {}, err
	}
	questDir := filepath.Join(workDir, ".quest")
	if err := os.MkdirAll(questDir, 0o755); err != nil {
		return nil, "", func() {}, err
	}
	dbPath := filepath.Join(questDir, "quest.db")
	storeDB, err := runlog.Open(dbPath)
	if err != nil {
		return nil, "", func() {}, err
	}
	return storeDB, workDir, func() { _ = storeDB.Close() }, nil
}

// buildFactory wires the collaborator set from config. Optional
// collaborators (retrieval, tools, history, telemetry) are skipped when not
// configured; the matching stages degrade or are skipped. The returned
// cleanup releases collaborator connections.
func buildFactory(ctx context.Context, cfg config.Config) (*workflows.Factory, func(), error) {
	gen, err := llm.NewGemini(ctx, llm.Config{Model: cfg.LLM.Model, APIKey: cfg.LLM.APIKey})
	if err != nil {
		return nil, nil, fmt.Errorf("init text generation: %w", err)
	}

	var searcher retrieval.Searcher
	if cfg.Retrieval.BaseURL != "" {
		client, err := retrieval.NewClient(retrieval.Config{BaseURL: cfg.Retrieval.BaseURL}, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("init retrieval: %w", err)
		}
		searcher = client
	}

	var invoker tools.Invoker
	var closers []func()
	if cfg.Tools.Endpoint != "" {
		mcpInvoker, err := tools.NewMCPInvoker(ctx, tools.MCPConfig{
			Endpoint:    cfg.Tools.Endpoint,
			CallTimeout: time.Duration(cfg.Tools.CallTimeoutMS) * time.Millisecond,
		})
		if err != nil {
			log.Warn().Err(err).Msg("tool service unavailable, verification disabled")
		} else {
			invoker = mcpInvoker
			closers = append(closers, func() { _ = mcpInvoker.Close() })
		}
	}

	var histStore history.Store
	if cfg.History.RedisAddr != "" {
		redisStore, err := history.NewRedis(history.RedisConfig{
			Addr: cfg.History.RedisAddr,
			TTL:  time.Duration(cfg.History.TTLHours) * time.Hour,
		})
		if err != nil {
			log.Warn().Err(err).Msg("history cache unavailable, running without history")
		} else {
			histStore = redisStore
			closers = append(closers, func() { _ = redisStore.Close() })
		}
	}

	var publisher telemetry.Publisher
	if cfg.Telemetry.NATSURL != "" {
		natsPub, err := telemetry.NewNATS(telemetry.NATSConfig{
			URL:     cfg.Telemetry.NATSURL,
			Subject: cfg.Telemetry.Subject,
		})
		if err != nil {
			log.Warn().Err(err).Msg("telemetry unavailable, events not published")
		} else {
			publisher = natsPub
			closers = append(closers, natsPub.Close)
		}
	}

	cleanup := func() {
		for _, closeFn := range closers {
			closeFn()
		}
	}
	return workflows.NewFactory(gen, searcher, invoker, histStore, publisher, workflowConfig(cfg)), cleanup, nil
}
