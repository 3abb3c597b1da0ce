package reason

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultMaxRoundsCap        = 5
	defaultConfidenceThreshold = 0.85
	defaultSimilarityThreshold = 0.9
	defaultLoopTimeout         = 2 * time.Minute

	statusThinking  = "thinking"
	statusConverged = "converged"
	statusDegraded  = "degraded"
)

// Generator produces reasoning text for one round. The coordinator consumes
// the whole stream before parsing; a mid-stream error discards the round.
type Generator interface {
	Stream(ctx context.Context, prompt string) iter.Seq2[string, error]
}

// Config bounds the reasoning loop.
type Config struct {
	// MaxRoundsCap is the hard safety cap on rounds, applied on top of the
	// policy-supplied cap.
	MaxRoundsCap int
	// ConfidenceThreshold stops the loop once a step reaches it.
	ConfidenceThreshold float64
	// SimilarityThreshold is the word-overlap ratio at or above which a new
	// hypothesis counts as no forward progress.
	SimilarityThreshold float64
	// Timeout covers all rounds combined.
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxRoundsCap <= 0 {
		c.MaxRoundsCap = defaultMaxRoundsCap
	}
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = defaultConfidenceThreshold
	}
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = defaultSimilarityThreshold
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultLoopTimeout
	}
	return c
}

// Request describes one reasoning run.
type Request struct {
	Question string
	Plan     Plan
	// MaxRounds is the policy-supplied round cap; the effective cap is
	// min(MaxRounds, Config.MaxRoundsCap), floored at 1.
	MaxRounds int
}

// Coordinator drives the bounded convergence loop.
type Coordinator struct {
	gen Generator
	cfg Config
}

// NewCoordinator constructs a coordinator with config defaults applied.
func NewCoordinator(gen Generator, cfg Config) *Coordinator {
	return &Coordinator{gen: gen, cfg: cfg.withDefaults()}
}

// EffectiveMaxRounds resolves the round budget for a policy cap. Callers use
// it to size the progress channel so the loop never blocks on a slow
// consumer.
func (c *Coordinator) EffectiveMaxRounds(policyCap int) int {
	rounds := c.cfg.MaxRoundsCap
	if policyCap < rounds {
		rounds = policyCap
	}
	if rounds < 1 {
		rounds = 1
	}
	return rounds
}

// Run executes reasoning rounds until a stop condition fires and returns the
// terminal result. Run never fails the caller: collaborator errors produce a
// degraded step and timeouts return whatever steps exist. When progress is
// non-nil, one sanitized record per completed round is pushed onto it;
// the channel is closed before Run returns.
func (c *Coordinator) Run(ctx context.Context, req Request, progress chan<- RoundProgress) Result {
	if progress != nil {
		defer close(progress)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	maxRounds := c.EffectiveMaxRounds(req.MaxRounds)
	var steps []Step

	for round := 1; round <= maxRounds; round++ {
		prompt := c.buildPrompt(req, round, steps)
		raw, err := collect(ctx, c.gen.Stream(ctx, prompt))
		if err != nil {
			if ctx.Err() != nil {
				log.Warn().Int("round", round).Msg("reasoning loop timed out")
				return finalize(steps, StopTimeout)
			}
			log.Warn().Err(err).Int("round", round).Msg("reasoning round failed")
			degraded := Step{
				Round:     round,
				Raw:       fmt.Sprintf("generation failed: %v", err),
				Timestamp: time.Now().UTC(),
			}
			steps = append(steps, degraded)
			c.push(progress, RoundProgress{Round: round, MaxRounds: maxRounds, Status: statusDegraded})
			return finalize(steps, StopError)
		}

		step := parseStep(round, raw)
		steps = append(steps, step)

		reason, stopped := EvaluateStop(steps, maxRounds, c.cfg.ConfidenceThreshold, c.cfg.SimilarityThreshold)
		status := statusThinking
		if stopped {
			status = statusConverged
		}
		c.push(progress, RoundProgress{
			Round:      round,
			MaxRounds:  maxRounds,
			Confidence: step.Confidence,
			Status:     status,
		})

		log.Debug().
			Int("round", round).
			Int("max_rounds", maxRounds).
			Float64("confidence", step.Confidence).
			Bool("stopped", stopped).
			Msg("reasoning round completed")

		if stopped {
			return finalize(steps, reason)
		}
	}

	// Unreachable: round maxRounds always satisfies the max-rounds condition.
	return finalize(steps, StopMaxRounds)
}

// EvaluateStop checks the stop conditions against an ordered step list, in
// priority order: confidence reached, round budget exhausted, no forward
// progress. It returns ok=false when the loop should continue. The check is
// pure: re-evaluating a terminal step list yields the same reason.
func EvaluateStop(steps []Step, maxRounds int, confidenceThreshold, similarityThreshold float64) (StopReason, bool) {
	if len(steps) == 0 {
		return "", false
	}
	last := steps[len(steps)-1]
	if last.Confidence >= confidenceThreshold {
		return StopConfidence, true
	}
	if len(steps) >= maxRounds {
		return StopMaxRounds, true
	}
	// The first step always counts as progress.
	if len(steps) >= 2 {
		prev := steps[len(steps)-2]
		if wordOverlap(last.Hypothesis, prev.Hypothesis) >= similarityThreshold {
			return StopNoProgress, true
		}
	}
	return "", false
}

func (c *Coordinator) buildPrompt(req Request, round int, steps []Step) string {
	var b strings.Builder
	b.WriteString("You are reasoning step by step toward an answer.\n\n")
	fmt.Fprintf(&b, "Objective: %s\n", req.Plan.Objective)
	if len(req.Plan.Subtasks) > 0 {
		b.WriteString("Subtasks:\n")
		for _, sub := range req.Plan.Subtasks {
			fmt.Fprintf(&b, "- %s\n", sub)
		}
	}
	fmt.Fprintf(&b, "\nRound %d.\n", round)
	if len(steps) > 0 {
		prev := steps[len(steps)-1]
		fmt.Fprintf(&b, "Previous hypothesis: %s\n", summarize(prev.Hypothesis, 200))
	}
	fmt.Fprintf(&b, "\nQuestion: %s\n\n", req.Question)
	b.WriteString("Respond in exactly this format:\n")
	b.WriteString("HYPOTHESIS: <your current best answer in one or two sentences>\n")
	b.WriteString("CONFIDENCE: <0.0-1.0>\n")
	b.WriteString("EVIDENCE:\n- <supporting reference>\n")
	return b.String()
}

// push delivers a progress record without ever blocking the loop. The
// channel is sized to the round budget so the default branch fires only on a
// misused channel; the drop is logged rather than silent.
func (c *Coordinator) push(progress chan<- RoundProgress, p RoundProgress) {
	if progress == nil {
		return
	}
	select {
	case progress <- p:
	default:
		log.Warn().Int("round", p.Round).Msg("progress channel full, dropping round update")
	}
}

func collect(ctx context.Context, chunks iter.Seq2[string, error]) (string, error) {
	var b strings.Builder
	for chunk, err := range chunks {
		if err != nil {
			return "", err
		}
		b.WriteString(chunk)
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return b.String(), nil
}

func finalize(steps []Step, reason StopReason) Result {
	res := Result{Steps: steps, StopReason: reason}
	for i := len(steps) - 1; i >= 0; i-- {
		if steps[i].Hypothesis != "" {
			res.FinalHypothesis = steps[i].Hypothesis
			res.FinalConfidence = steps[i].Confidence
			break
		}
	}
	if len(steps) > 0 && res.FinalHypothesis == "" {
		res.FinalConfidence = steps[len(steps)-1].Confidence
	}
	return res
}
