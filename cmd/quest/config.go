package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/metalagman/quest/internal/config"
	"github.com/metalagman/quest/internal/reason"
	"github.com/metalagman/quest/internal/runctx"
	"github.com/metalagman/quest/internal/workflows"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		RunE: func(_ *cobra.Command, _ []string) error {
			workDir, err := os.Getwd()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(workDir)
			if err != nil {
				return err
			}
			cfg.LLM.APIKey = "" // never echo secrets
			out, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func loadConfig(workDir string) (config.Config, error) {
	path := viper.GetString("config")
	if path == "" {
		path = filepath.Join(".quest", "config.json")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, path)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), nil
	}
	viper.SetConfigFile(path)
	viper.SetConfigType("json")
	if err := viper.ReadInConfig(); err != nil {
		return config.Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := config.ValidateSettings(viper.AllSettings()); err != nil {
		return config.Config{}, err
	}
	cfg := config.Default()
	if err := viper.Unmarshal(&cfg); err != nil {
		return config.Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Policy.MaxReasoningRounds <= 0 {
		return config.Config{}, fmt.Errorf("policy.max_reasoning_rounds must be > 0")
	}
	return cfg, nil
}

func policyFromConfig(cfg config.Config) runctx.Policy {
	return runctx.Policy{
		MaxReasoningRounds: cfg.Policy.MaxReasoningRounds,
		MaxToolRounds:      cfg.Policy.MaxToolRounds,
		ToolTier:           cfg.Policy.ToolTier,
		AllowRetrieval:     cfg.Policy.AllowRetrieval,
		AllowFileAccess:    cfg.Policy.AllowFileAccess,
	}
}

func workflowConfig(cfg config.Config) workflows.Config {
	return workflows.Config{
		GlobalTimeout: time.Duration(cfg.Pipeline.GlobalTimeoutSec) * time.Second,
		StageTimeout:  time.Duration(cfg.Pipeline.StageTimeoutSec) * time.Second,
		DeepTimeout:   time.Duration(cfg.Pipeline.DeepTimeoutSec) * time.Second,
		HistoryLimit:  cfg.Pipeline.HistoryLimit,
		TopK:          cfg.Pipeline.TopK,
		MinScore:      cfg.Pipeline.MinScore,
		Reasoning: reason.Config{
			MaxRoundsCap:        cfg.Reasoning.MaxRoundsCap,
			ConfidenceThreshold: cfg.Reasoning.ConfidenceThreshold,
			SimilarityThreshold: cfg.Reasoning.SimilarityThreshold,
			Timeout:             time.Duration(cfg.Reasoning.TimeoutSec) * time.Second,
		},
	}
}
