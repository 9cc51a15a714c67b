package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"warehouse-allocation-service/internal/adapters/repositories"
	"warehouse-allocation-service/internal/config"
	"warehouse-allocation-service/internal/domain"
	"warehouse-allocation-service/internal/platform/db"
	"warehouse-allocation-service/internal/services"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

var (
	cfg    *config.Config
	conn   *sql.DB
	stores repositories.Stores

	seedFile string
	gridSeed uint64
	useGrid  bool
	tailN    int
)

var rootCmd = &cobra.Command{
	Use:           "dbtool",
	Short:         "Manage the warehouse allocation database",
	Long:          "Initialize the schema, seed bin layouts, inspect and reset the shipment log.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			logrus.Debug("No .env file found (using environment variables)")
		}

		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}

		var dialect string
		if conn, dialect, err = db.OpenFor(cfg.DatabaseURL, cfg.DBPath); err != nil {
			return err
		}
		if stores, err = repositories.NewStores(conn, dialect); err != nil {
			return err
		}
		logrus.WithField("dialect", dialect).Debug("database ready")
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Schema creation runs in PersistentPreRunE.
		fmt.Fprintln(cmd.OutOrStdout(), "Schema ready.")
		return nil
	},
}

var seedBinsCmd = &cobra.Command{
	Use:   "seed-bins",
	Short: "Replace the stored bin layout from a YAML/JSON file or a generated grid",
	RunE: func(cmd *cobra.Command, args []string) error {
		var layout []domain.BinSpec
		switch {
		case seedFile != "" && useGrid:
			return errors.New("seed-bins: --file and --grid are mutually exclusive")
		case seedFile != "":
			var err error
			if layout, err = repositories.LoadBinLayout(seedFile); err != nil {
				return err
			}
		case useGrid:
			layout = repositories.DefaultBinGrid(gridSeed)
		default:
			return errors.New("seed-bins: one of --file or --grid is required")
		}

		// Validate before touching the table.
		if err := domain.NewBinIndex().Reset(layout); err != nil {
			return fmt.Errorf("seed-bins: %w", err)
		}
		if err := stores.Bins.ReplaceBins(cmd.Context(), layout); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stored %d bins.\n", len(layout))
		return nil
	},
}

var resetLogCmd = &cobra.Command{
	Use:   "reset-log",
	Short: "Delete the shipment log so the next server start bootstraps a fresh session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := stores.Events.Truncate(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Shipment log cleared.")
		return nil
	},
}

var replayCheckCmd = &cobra.Command{
	Use:   "replay-check",
	Short: "Replay the shipment log into a scratch engine and print the resulting status",
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := stores.Events.List(cmd.Context())
		if err != nil {
			return err
		}

		engine := services.NewAllocationEngine(services.EngineConfig{
			TruckCapacity: cfg.TruckCapacity,
			MaxCandidates: cfg.MaxCandidates,
		}, nil)
		if err := engine.Replay(cmd.Context(), events); err != nil {
			return err
		}

		st := engine.Status()
		fmt.Fprintf(cmd.OutOrStdout(),
			"events=%d bins=%d free_bins=%d queue=%d backlog=%d manifest=%d used=%d/%d\n",
			len(events), st.BinCount, st.FreeBinCount, st.QueueLength, st.BacklogLength,
			st.ManifestSize, st.ManifestUsed, st.ManifestLimit)
		return nil
	},
}

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print the last entries of the shipment log",
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := stores.Events.List(cmd.Context())
		if err != nil {
			return err
		}
		if tailN > 0 && len(events) > tailN {
			events = events[len(events)-tailN:]
		}
		for _, ev := range events {
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\t%s\n",
				ev.Seq, ev.RecordedAt.Format("2006-01-02 15:04:05"), ev.Type, ev.TrackingID, ev.Detail)
		}
		return nil
	},
}

func init() {
	seedBinsCmd.Flags().StringVar(&seedFile, "file", "", "Bin layout file (.yaml, .yml or .json)")
	seedBinsCmd.Flags().BoolVar(&useGrid, "grid", false, "Generate the 4x5x3 demo grid")
	seedBinsCmd.Flags().Uint64Var(&gridSeed, "seed", 1, "Seed for generated grid capacities")
	tailCmd.Flags().IntVarP(&tailN, "lines", "n", 20, "Number of entries to print (0 for all)")

	rootCmd.AddCommand(initCmd, seedBinsCmd, resetLogCmd, replayCheckCmd, tailCmd)
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	if conn != nil {
		_ = conn.Close()
	}
	if err != nil {
		logrus.Fatal(err)
	}
}
