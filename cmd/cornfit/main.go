// Command cornfit runs the corn yield pipeline: check validates an export,
// report renders the full analysis, load exports the aggregates to a
// database.
package main

import (
	"fmt"
	"os"

	"github.com/invertedv/cornfit"
	"github.com/invertedv/cornfit/report"
	"github.com/invertedv/cornfit/store"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// global flags
	verbose bool

	// command flags
	inputFile  string
	regionFile string
	outDir     string
	alpha      float64
	maxLag     int
	centerYear bool
	toDB       bool
	tableName  string
	overwrite  bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cornfit",
	Short: "Exploratory corn yield models over NASS QuickStats exports",
	Long: `cornfit reads a USDA NASS QuickStats corn survey export, aggregates
production and harvested acres to analysis regions, fits additive and
pairwise interaction least squares models, and refits under GLS with an
AR(1) error process per (region, irrigation) stratum.

Database export reads DB_DIALECT, DB_HOST, DB_PORT, DB_USER, DB_PASSWORD
and DB_NAME from the environment; a .env file is loaded when present.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}

		var err error
		if logger, err = config.Build(); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Ingest, reshape and aggregate only, then report rejects and gaps",
	RunE:  runCheck,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run the full pipeline and render the report directory",
	RunE:  runReport,
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Export the aggregated observations to the configured database",
	RunE:  runLoad,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	for _, cmd := range []*cobra.Command{checkCmd, reportCmd, loadCmd} {
		cmd.Flags().StringVarP(&inputFile, "input", "i", "", "NASS QuickStats export (required)")
		cmd.Flags().StringVar(&regionFile, "regions", "", "YAML region lookup replacing the built-in one")
		cmd.MarkFlagRequired("input")
	}

	reportCmd.Flags().StringVarP(&outDir, "out", "o", "corn-report", "report directory")
	reportCmd.Flags().Float64Var(&alpha, "alpha", cornfit.DefaultAlpha, "test size for the diagnostic decisions")
	reportCmd.Flags().IntVar(&maxLag, "max-lag", cornfit.DefaultMaxLag, "ACF and Ljung-Box lag ceiling per stratum")
	reportCmd.Flags().BoolVar(&centerYear, "center-year", false, "center the year term at its mean")
	reportCmd.Flags().BoolVar(&toDB, "db", false, "also export observations and model results to the database")

	for _, cmd := range []*cobra.Command{reportCmd, loadCmd} {
		cmd.Flags().StringVar(&tableName, "table", "corn", "database table (and result table prefix)")
		cmd.Flags().BoolVar(&overwrite, "overwrite", true, "drop and recreate existing tables")
	}

	rootCmd.AddCommand(checkCmd, reportCmd, loadCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func config() *cornfit.RunConfig {
	return &cornfit.RunConfig{
		InputFile:  inputFile,
		RegionFile: regionFile,
		Alpha:      alpha,
		MaxLag:     maxLag,
		CenterYear: centerYear,
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	res, err := cornfit.Check(config(), logger)
	if err != nil {
		return err
	}

	report.Console(os.Stdout, res.ReportInput())

	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	res, err := cornfit.Run(config(), logger)
	if err != nil {
		return err
	}

	in := res.ReportInput()
	if err = report.Render(outDir, in); err != nil {
		return err
	}

	logger.Info("report rendered", zap.String("dir", outDir))
	report.Console(os.Stdout, in)

	if toDB {
		return export(res)
	}

	return nil
}

func runLoad(cmd *cobra.Command, args []string) error {
	res, err := cornfit.Check(config(), logger)
	if err != nil {
		return err
	}

	return export(res)
}

// export writes the result tables to the database named by the environment.
func export(res *cornfit.RunResult) error {
	tables, err := res.Tables(tableName)
	if err != nil {
		return err
	}

	st, err := store.NewFromEnv()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	for _, tbl := range tables {
		if err = st.SaveFrame(tbl.Name, tbl.OrderBy, tbl.DF, overwrite); err != nil {
			return fmt.Errorf("save %s: %w", tbl.Name, err)
		}

		logger.Info("table saved",
			zap.String("table", tbl.Name),
			zap.String("dialect", st.DialectName()),
			zap.Int("rows", tbl.DF.RowCount()))
	}

	return nil
}
