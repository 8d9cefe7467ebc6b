package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/formflow-dev/formflow/internal/llm/extractor"
	tracing "github.com/formflow-dev/formflow/internal/observability"
	"github.com/formflow-dev/formflow/internal/search"
	"github.com/formflow-dev/formflow/pkg/config"
	"github.com/formflow-dev/formflow/pkg/filler"
	"github.com/formflow-dev/formflow/pkg/observability"
	"github.com/formflow-dev/formflow/pkg/session"
)

var configFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "formflow",
		Short:   "Conversational form-filling assistant",
		Long:    "formflow fills out forms from natural-language conversation, extracting field values turn by turn and asking for what is still missing.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			observability.InitMetrics()
			return tracing.InitFromEnv()
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", os.Getenv("FORMFLOW_CONFIG"), "configuration file (YAML)")

	root.AddCommand(newChatCmd())
	root.AddCommand(newSessionsCmd())
	return root
}

func loadConfig() (*config.Config, error) {
	if configFile == "" {
		return config.Default(), nil
	}
	return config.LoadConfig(configFile)
}

// buildStore creates the session store the configuration selects.
func buildStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	switch cfg.Store.Backend {
	case "memory":
		store := session.NewMemoryStore(cfg.Store.SessionTTL)
		if cfg.Store.SweepSchedule != "" {
			if err := store.StartSweeper(cfg.Store.SweepSchedule); err != nil {
				return nil, fmt.Errorf("start sweeper: %w", err)
			}
		}
		return store, nil
	case "redis":
		return session.NewRedisStore(session.RedisConfig{
			Addr:       cfg.Store.Redis.Addr,
			Password:   cfg.Store.Redis.Password,
			DB:         cfg.Store.Redis.DB,
			Prefix:     cfg.Store.Redis.Prefix,
			SessionTTL: cfg.Store.SessionTTL,
			PoolSize:   cfg.Store.Redis.PoolSize,
		})
	case "firestore":
		return session.NewFirestoreStore(ctx, session.FirestoreConfig{
			ProjectID:       cfg.Store.Firestore.Project,
			CredentialsFile: cfg.Store.Firestore.Credentials,
			Collection:      cfg.Store.Firestore.Collection,
		})
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}

// buildExtractor creates the extraction collaborator the configuration
// selects, wrapped with client-side rate limiting when configured.
func buildExtractor(ctx context.Context, cfg *config.Config) (extractor.Extractor, error) {
	var (
		ex  extractor.Extractor
		err error
	)
	switch cfg.Extractor.Provider {
	case "openai":
		ex = extractor.NewOpenAIExtractor(cfg.Extractor.OpenAIKey, cfg.Extractor.Model)
	case "gemini":
		ex, err = extractor.NewGeminiExtractor(ctx, cfg.Extractor.GeminiKey, cfg.Extractor.Model)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown extractor provider: %s", cfg.Extractor.Provider)
	}

	if cfg.Extractor.RateLimitRPS > 0 {
		burst := cfg.Extractor.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		ex = extractor.NewRateLimited(ex, cfg.Extractor.RateLimitRPS, burst)
	}
	return ex, nil
}

// buildEngine assembles the engine from configuration.
func buildEngine(ctx context.Context, cfg *config.Config, store session.Store) (*filler.Engine, error) {
	ex, err := buildExtractor(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := []filler.Option{filler.WithTimeout(cfg.TurnTimeout)}
	if cfg.Search.Enabled && len(cfg.Search.Documents) > 0 {
		opts = append(opts, filler.WithAugmenter(search.NewKeyword(cfg.Search.Documents, cfg.Search.TopK)))
	}
	return filler.New(store, ex, opts...), nil
}
