package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"demandwave/internal/cli"
	"demandwave/internal/config"
	"demandwave/internal/db"
	"demandwave/internal/market"
	"demandwave/internal/store"
)

func main() {
	root := &cobra.Command{
		Use:          "marketctl",
		Short:        "Operator CLI for the market demand engine",
		SilenceUsage: true,
	}

	root.AddCommand(
		newRunCmd(),
		newStatusCmd(),
		newWavesCmd(),
		newHealthCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context) (*store.Store, func(), error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required")
	}
	pool, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return store.New(pool, logger), pool.Close, nil
}

func newRunCmd() *cobra.Command {
	var tuningFile string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one demand wave now and print its metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()

			engineCfg, err := config.LoadTuning(tuningFile)
			if err != nil {
				return err
			}
			st, closeFn, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			treasuryID, err := st.EnsureTreasury(ctx)
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
			engine, err := market.NewEngine(engineCfg, st, st, st, st, treasuryID, logger)
			if err != nil {
				return err
			}

			metrics, err := engine.RunWave(ctx)
			if err != nil {
				return err
			}
			printWave(metrics)
			return nil
		},
	}
	cmd.Flags().StringVar(&tuningFile, "tuning", "", "path to engine tuning YAML")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show when the next scheduled wave is due",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			if url := apiURL(); url != "" {
				next, err := cli.NewClient(url).NextWave(ctx)
				if err != nil {
					return err
				}
				printSchedule(next.LastWaveAt, next.NextWaveAt, next.Interval)
				return nil
			}

			st, closeFn, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			interval := waveInterval()
			last, found, err := st.LastWaveAt(ctx)
			if err != nil {
				return err
			}
			if !found {
				printWarn("No wave has completed yet.")
				printLine("Interval", interval.String())
				return nil
			}
			printSchedule(&last, last.Add(interval), interval.String())
			return nil
		},
	}
}

func newWavesCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "waves",
		Short: "List recent wave metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			if url := apiURL(); url != "" {
				waves, err := cli.NewClient(url).Waves(ctx, limit)
				if err != nil {
					return err
				}
				if len(waves) == 0 {
					printWarn("No completed waves recorded.")
					return nil
				}
				for _, w := range waves {
					printWaveSummary(w)
					fmt.Println()
				}
				return nil
			}

			st, closeFn, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			waves, err := st.RecentWaves(ctx, limit)
			if err != nil {
				return err
			}
			if len(waves) == 0 {
				printWarn("No completed waves recorded.")
				return nil
			}
			for _, m := range waves {
				printWave(m)
				fmt.Println()
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 5, "number of waves to show")
	return cmd
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the API (or the database) is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			if url := apiURL(); url != "" {
				if err := cli.NewClient(url).Healthy(ctx); err != nil {
					return err
				}
				printHeader("API healthy")
				printLine("Endpoint", url)
				return nil
			}

			_, closeFn, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer closeFn()
			printHeader("Database healthy")
			return nil
		},
	}
}

// apiURL switches the read commands to the HTTP API when set, avoiding a
// direct database dependency on operator machines.
func apiURL() string {
	return os.Getenv("MARKET_API_URL")
}

func waveInterval() time.Duration {
	if v := os.Getenv("MARKET_WAVE_EVERY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return 20 * time.Minute
}
