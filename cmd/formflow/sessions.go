package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/formflow-dev/formflow/pkg/session"
)

func newSessionsCmd() *cobra.Command {
	sessions := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect stored sessions",
	}

	var (
		limit  int
		offset int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored session thread ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := buildStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			ids, err := store.List(ctx, session.ListOptions{Limit: limit, Offset: offset})
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
	list.Flags().IntVar(&limit, "limit", 0, "maximum thread ids to return (0 = all)")
	list.Flags().IntVar(&offset, "offset", 0, "thread ids to skip")

	show := &cobra.Command{
		Use:   "show <thread-id>",
		Short: "Show one session's state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := buildStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			state, err := store.Load(ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Thread:  %s\n", state.ThreadID)
			fmt.Printf("Status:  %s\n", state.Status)
			fmt.Printf("Updated: %s\n", state.UpdatedAt.Format("2006-01-02 15:04:05"))
			fmt.Printf("Filled:  %d of %d fields\n", len(state.FilledFields), len(state.FormFields))
			for _, ff := range state.FilledFields {
				fmt.Printf("  %s = %s\n", ff.FieldID, ff.Value)
			}
			if len(state.MissingFields) > 0 {
				fmt.Println("Missing:")
				for _, mf := range state.MissingFields {
					fmt.Printf("  %s\n", mf.FieldID)
				}
			}
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <thread-id>",
		Short: "Delete one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := buildStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			return store.Delete(ctx, args[0])
		},
	}

	sessions.AddCommand(list, show, del)
	return sessions
}
