package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/semantle/internal/config"
	"github.com/robalobadob/semantle/internal/db"
	"github.com/robalobadob/semantle/internal/game"
	"github.com/robalobadob/semantle/internal/httpserver"
	"github.com/robalobadob/semantle/internal/similarity"
	"github.com/robalobadob/semantle/internal/store"
	"github.com/robalobadob/semantle/internal/words"
)

const releaseVersion = "0.4.0"

func newRootCmd() *cobra.Command {
	cfg := &config.Config{}

	root := &cobra.Command{
		Use:           "semantle",
		Short:         "Word guessing by meaning: Semantle and Antisemantle over pluggable embeddings.",
		Version:       releaseVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	config.RegisterProviderFlags(root.PersistentFlags(), cfg)
	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		config.BindEnv(cmd.Flags())
		return setupLogging(cfg)
	}

	root.AddCommand(newServeCmd(cfg), newScoreCmd(cfg), newNeighborsCmd(cfg), newImportVectorsCmd(cfg))
	root.CompletionOptions.HiddenDefaultCmd = true
	root.SetHelpCommand(&cobra.Command{Hidden: true})
	root.SetVersionTemplate("semantle v{{.Version}}\n")
	return root
}

func setupLogging(cfg *config.Config) error {
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zerolog.SetGlobalLevel(lvl)
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	return nil
}

func newServeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP game server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	config.RegisterServeFlags(cmd.Flags(), cfg)
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	reg, closeProviders, err := buildRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeProviders()

	conn, err := db.OpenMigrated(cfg.DBPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	wl, err := words.Load(cfg.WordsFile)
	if err != nil {
		return fmt.Errorf("load words: %w", err)
	}
	examples, err := words.LoadExamples()
	if err != nil {
		return fmt.Errorf("load examples: %w", err)
	}
	policy, err := game.ParseUnknownPolicy(cfg.UnknownWords)
	if err != nil {
		return err
	}

	mem := store.NewMemoryStore(cfg.SessionTTL)
	go mem.Run(ctx, time.Minute)

	srv := httpserver.New(httpserver.Options{
		JWTSecret:      cfg.JWTSecret,
		JWTExpiresDays: cfg.JWTExpiresDays,
		CookieName:     cfg.CookieName,
		ClientOrigin:   cfg.ClientOrigin,
		Production:     cfg.Production(),
		RequestTimeout: cfg.RequestTimeout,
		UnknownWords:   policy,
		DailySalt:      cfg.DailySalt,
	}, httpserver.Deps{
		Store:    mem,
		DB:       conn,
		Scorers:  reg,
		Words:    wl,
		Examples: examples,
	})

	log.Info().
		Int("port", cfg.Port).
		Strs("providers", reg.Names()).
		Str("default", reg.DefaultName()).
		Int("words", wl.Len()).
		Msg("starting semantle server")
	return srv.Start(ctx, ":"+strconv.Itoa(cfg.Port))
}

func newScoreCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "score SECRET GUESS...",
		Short: "Print the game score of each guess against a secret word",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.ValidateProviders(); err != nil {
				return err
			}
			ctx := cmd.Context()
			reg, closeProviders, err := buildRegistry(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeProviders()

			sc := reg.Default()
			out := cmd.OutOrStdout()
			for _, g := range args[1:] {
				score, err := sc.Score(ctx, args[0], g)
				switch {
				case err == nil:
					fmt.Fprintf(out, "%-20s %3d\n", similarity.Normalize(g), score)
				case errors.Is(err, similarity.ErrUnknownWord):
					fmt.Fprintf(out, "%-20s   -  (unknown to %s)\n", similarity.Normalize(g), sc.ProviderName())
				default:
					return err
				}
			}
			return nil
		},
	}
}

func newNeighborsCmd(cfg *config.Config) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "neighbors WORD",
		Short: "List the nearest vocabulary words to WORD",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.ValidateProviders(); err != nil {
				return err
			}
			ctx := cmd.Context()
			reg, closeProviders, err := buildRegistry(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeProviders()

			list, err := reg.Default().Neighbors(ctx, args[0], n)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, nb := range list {
				fmt.Fprintf(out, "%3d  %-20s %.4f\n", i+1, nb.Word, nb.Similarity)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", 10, "number of neighbours to list")
	return cmd
}

func newImportVectorsCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "import-vectors",
		Short: "Copy the vectors file into the pgvector table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.PgVectorDSN == "" {
				return errors.New("import-vectors needs --pgvector-dsn")
			}
			ctx := cmd.Context()
			vec, err := loadVectors(cfg.VectorsFile)
			if err != nil {
				return err
			}
			pg, err := similarity.OpenPgVector(ctx, cfg.PgVectorDSN)
			if err != nil {
				return err
			}
			defer pg.Close()

			start := time.Now()
			n, err := pg.Import(ctx, vec)
			if err != nil {
				return err
			}
			log.Info().Int("words", n).Int("dim", vec.Dim()).Dur("took", time.Since(start)).Msg("imported vectors")
			return nil
		},
	}
}
