package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/metalagman/quest/internal/event"
	"github.com/metalagman/quest/internal/runctx"
	"github.com/metalagman/quest/internal/runlog"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func askCmd() *cobra.Command {
	var strategy string
	var session string
	var plain bool
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question and stream the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := args[0]
			for _, arg := range args[1:] {
				question += " " + arg
			}

			storeDB, workDir, closeFn, err := openRunLog()
			if err != nil {
				return err
			}
			defer closeFn()

			cfg, err := loadConfig(workDir)
			if err != nil {
				return err
			}

			factory, cleanup, err := buildFactory(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			rc, err := runctx.New(runctx.Request{
				Question:  question,
				SessionID: session,
			}, policyFromConfig(cfg), runctx.ParseStrategy(strategy))
			if err != nil {
				return err
			}

			store := runlog.NewStore(storeDB)
			events := store.Record(cmd.Context(), rc, factory.Build(rc).Execute(cmd.Context(), rc))

			var answer string
			hasError := false
			for ev := range events {
				switch ev.Stage {
				case event.StageAnswer:
					answer, _ = ev.Payload["answer"].(string)
					hasError, _ = ev.Payload["has_error"].(bool)
				case event.StageError:
					fmt.Fprintf(os.Stderr, "! %s\n", ev.Message)
				default:
					fmt.Fprintf(os.Stderr, "* %s: %s\n", ev.Stage, ev.Message)
				}
			}

			if err := printAnswer(answer, plain); err != nil {
				return err
			}
			if hasError {
				return fmt.Errorf("run %s completed with errors", rc.RunID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", "fast", "execution strategy: fast or deep")
	cmd.Flags().StringVar(&session, "session", "", "session id for conversation continuity")
	cmd.Flags().BoolVar(&plain, "plain", false, "print the answer without markdown rendering")
	return cmd
}

func printAnswer(answer string, plain bool) error {
	if answer == "" {
		fmt.Println("(no answer)")
		return nil
	}
	if plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Println(answer)
		return nil
	}
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		fmt.Println(answer)
		return nil
	}
	rendered, err := renderer.Render(answer)
	if err != nil {
		fmt.Println(answer)
		return nil
	}
	fmt.Print(rendered)
	return nil
}
