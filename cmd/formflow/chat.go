package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	tracing "github.com/formflow-dev/formflow/internal/observability"
	"github.com/formflow-dev/formflow/pkg/filler"
	"github.com/formflow-dev/formflow/pkg/form"
	"github.com/formflow-dev/formflow/pkg/observability"
	"github.com/formflow-dev/formflow/pkg/session"
)

func newChatCmd() *cobra.Command {
	var (
		formFile string
		threadID string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Fill out a form interactively",
		Long:  "Starts an interactive session that extracts form values from your messages and asks for anything still missing. Use --thread to resume an existing session.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			var fields form.Registry
			if threadID == "" {
				if formFile == "" {
					return errors.New("--form is required when starting a new session")
				}
				fields, err = loadFormFields(formFile)
				if err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := buildStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			engine, err := buildEngine(ctx, cfg, store)
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)

			var obsServer *observability.Server
			if cfg.MetricsPort > 0 {
				obsServer = observability.NewServer(cfg.MetricsPort)
				g.Go(func() error {
					log.Printf("Starting metrics server on :%d", cfg.MetricsPort)
					if err := obsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return fmt.Errorf("metrics server: %w", err)
					}
					return nil
				})
			}

			g.Go(func() error {
				defer stop()
				return runRepl(gctx, engine, fields, threadID)
			})

			err = g.Wait()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if obsServer != nil {
				if serr := obsServer.Shutdown(shutdownCtx); serr != nil {
					log.Printf("metrics server shutdown error: %v", serr)
				}
			}
			if terr := tracing.Shutdown(shutdownCtx); terr != nil {
				log.Printf("tracing shutdown error: %v", terr)
			}

			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&formFile, "form", "f", "", "form definition file (YAML list of fields)")
	cmd.Flags().StringVarP(&threadID, "thread", "t", "", "resume an existing session by thread id")
	return cmd
}

// runRepl drives the interactive loop until the form is completed or the
// user exits.
func runRepl(ctx context.Context, engine *filler.Engine, fields form.Registry, threadID string) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Println("Describe what you want to fill in. Type 'exit' to quit.")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		input, err := line.Prompt("> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				return nil
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return nil
		}
		line.AppendHistory(input)

		var state *session.State
		if threadID == "" {
			state, err = engine.StartTurn(ctx, input, fields)
		} else {
			state, err = engine.ContinueTurn(ctx, threadID, input)
		}
		if err != nil {
			if errors.Is(err, filler.ErrCollaboratorUnavailable) {
				fmt.Println("The assistant is temporarily unavailable, please try again.")
				continue
			}
			return err
		}
		threadID = state.ThreadID

		fmt.Println(state.ResponseMessage)
		if state.Status == session.StatusCompleted {
			printFilledForm(state)
			return nil
		}
	}
}

func printFilledForm(state *session.State) {
	fmt.Printf("\nThread %s completed:\n", state.ThreadID)
	for _, f := range state.FormFields {
		label := f.Label
		if label == "" {
			label = f.FieldID
		}
		fmt.Printf("  %s: %s\n", label, f.Value)
	}
}

// loadFormFields reads a form definition file. The file is a YAML (or JSON,
// which YAML accepts) list of field definitions.
func loadFormFields(path string) (form.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read form file: %w", err)
	}

	var fields []form.FormField
	if err := yaml.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to parse form file: %w", err)
	}
	if len(fields) == 0 {
		return nil, errors.New("form file defines no fields")
	}
	for i, f := range fields {
		if f.FieldID == "" {
			return nil, fmt.Errorf("form file field %d has no field_id", i)
		}
	}
	return form.Registry(fields), nil
}
