package cmd

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mab-sim/mab-sim/sim"
	"github.com/mab-sim/mab-sim/sim/store"
	"github.com/mab-sim/mab-sim/sim/trace"
)

var (
	// CLI flags for the backtest
	specPath          string // Path to experiment YAML (optional)
	seed              int64  // Master seed for every RNG subsystem
	logLevel          string // Log verbosity level
	numClients        int    // Client population size
	numPeriods        int    // Number of simulated periods
	policyName        string // Assignment policy
	coldStartName     string // Cold-start treatment for arms without successes
	exposureSize      int    // Fixed exposure sample size per period
	historyWindowDays int    // Days of history the policy reads (0 = all)
	outputDir         string // Directory for parquet partitions (empty = none)
	cleanOutput       bool   // Empty outputDir before the run
	metricsTextfile   string // Prometheus textfile path (empty = none)
	traceLevel        string // Decision trace verbosity

	// CLI flags for recommend
	historyGlob string // Glob of history partitions
	armIDs      []int  // Fixed arm set
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "mab-sim",
	Short: "Thompson Sampling backtesting harness for ad allocation",
}

func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// buildSpec loads the experiment spec (or the default one) and applies the flags
// the user explicitly set on top of it.
func buildSpec(cmd *cobra.Command) (*sim.ExperimentSpec, error) {
	spec := sim.DefaultExperimentSpec()
	if specPath != "" {
		loaded, err := sim.LoadExperimentSpec(specPath)
		if err != nil {
			return nil, err
		}
		spec = loaded
	}
	flags := cmd.Flags()
	if flags.Changed("seed") {
		spec.Seed = seed
	}
	if flags.Changed("clients") {
		spec.Clients = numClients
	}
	if flags.Changed("periods") {
		spec.Periods = numPeriods
	}
	if flags.Changed("policy") {
		spec.Policy = policyName
	}
	if flags.Changed("cold-start") {
		spec.ColdStart = coldStartName
	}
	if flags.Changed("exposure-size") {
		spec.Exposure = sim.ExposureSpec{Size: exposureSize}
	}
	if flags.Changed("history-window") {
		spec.HistoryWindowDays = historyWindowDays
	}
	return spec, nil
}

// runCmd executes the backtest using the experiment spec and CLI overrides
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bandit backtest",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Unknown trace level %q; valid: none, periods", traceLevel)
		}
		spec, err := buildSpec(cmd)
		if err != nil {
			logrus.Fatalf("Failed to load experiment spec: %v", err)
		}

		s, err := sim.NewSimulator(spec, trace.TraceConfig{Level: trace.TraceLevel(traceLevel)})
		if err != nil {
			logrus.Fatalf("Invalid experiment: %v", err)
		}
		if outputDir != "" {
			if cleanOutput {
				if err := store.RemoveDirectoryContents(outputDir); err != nil {
					logrus.Fatalf("Failed to clean %s: %v", outputDir, err)
				}
			}
			s.Sink = store.NewPartitionWriter(outputDir, s.RunID)
		}

		startTime := time.Now()
		if err := s.Run(); err != nil {
			logrus.Fatalf("Backtest failed: %v", err)
		}
		s.Metrics.Print()
		if s.Trace.Enabled() {
			printTraceSummary(trace.Summarize(s.Trace))
		}
		if metricsTextfile != "" {
			if err := writeMetricsTextfile(metricsTextfile, s.RunID, s.Metrics); err != nil {
				logrus.Fatalf("Failed to write metrics: %v", err)
			}
		}
		logrus.Infof("Backtest complete in %s.", time.Since(startTime).Round(time.Millisecond))
	},
}

// recommendCmd samples the posterior over stored history, like a single
// production scoring pass.
var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend an arm per client from stored click history",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		if historyGlob == "" {
			logrus.Fatalf("--history is required")
		}
		rows, err := store.ReadPartitions(historyGlob)
		if err != nil {
			logrus.Fatalf("Failed to read history: %v", err)
		}
		history := sim.NewHistory(rows...)
		arms := make([]sim.ArmID, len(armIDs))
		for i, a := range armIDs {
			arms[i] = sim.ArmID(a)
		}
		rng := sim.NewPartitionedRNG(sim.NewSimulationKey(seed)).ForSubsystem(sim.SubsystemPosterior)
		recommended, err := sim.RecommendArms(history.Rows(), arms, numClients, rng, sim.ColdStart(coldStartName))
		if err != nil {
			logrus.Fatalf("Failed to recommend: %v", err)
		}
		printRecommendation(cmd, history, recommended)
	},
}

// cleanCmd empties a partition directory.
var cleanCmd = &cobra.Command{
	Use:   "clean <dir>",
	Short: "Remove every partition under a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return store.RemoveDirectoryContents(args[0])
	},
}

func printRecommendation(cmd *cobra.Command, history *sim.History, recommended []sim.ArmID) {
	counts := make(map[sim.ArmID]int)
	for _, a := range recommended {
		counts[a]++
	}
	tallies := history.Tally()
	arms := make([]sim.ArmID, 0, len(counts))
	for a := range counts {
		arms = append(arms, a)
	}
	slices.Sort(arms)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "=== Recommendation (%d outcomes) ===\n", history.Len())
	for _, a := range arms {
		t := tallies[a]
		fmt.Fprintf(out, "arm %-4d: %8d clients  (successes=%d, failures=%d)\n", a, counts[a], t.Successes, t.Failures)
	}
}

func printTraceSummary(summary *trace.TraceSummary) {
	fmt.Println("=== Trace Summary ===")
	fmt.Printf("Periods              : %d\n", summary.TotalPeriods)
	fmt.Printf("Exposures            : %d\n", summary.TotalExposures)
	fmt.Printf("Click-Through Rate   : %.4f\n", summary.ClickThroughRate)
	fmt.Printf("Cumulative Regret    : %.2f\n", summary.CumulativeRegret)
	fmt.Printf("Mean Regret/Exposure : %.6f\n", summary.MeanRegret)
	arms := make([]int, 0, len(summary.FinalArmShare))
	for a := range summary.FinalArmShare {
		arms = append(arms, a)
	}
	slices.Sort(arms)
	for _, a := range arms {
		fmt.Printf("Final share arm %-4d : %.2f%%\n", a, 100*summary.FinalArmShare[a])
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 42, "Seed for every random draw")
	rootCmd.PersistentFlags().IntVar(&numClients, "clients", 100_000, "Number of clients")
	rootCmd.PersistentFlags().StringVar(&coldStartName, "cold-start", string(sim.ColdStartZero), "Cold start for arms without successes (zero, uniform)")

	// Backtest configs
	runCmd.Flags().StringVar(&specPath, "spec", "", "Path to experiment YAML (defaults to the built-in reference backtest)")
	runCmd.Flags().IntVar(&numPeriods, "periods", 1, "Number of simulated periods")
	runCmd.Flags().StringVar(&policyName, "policy", sim.PolicyThompson, "Assignment policy (random, thompson)")
	runCmd.Flags().IntVar(&exposureSize, "exposure-size", 0, "Fixed number of clients shown an ad per period")
	runCmd.Flags().IntVar(&historyWindowDays, "history-window", 0, "Days of history the policy learns from (0 = all)")
	runCmd.Flags().StringVar(&outputDir, "output-dir", "", "Write markings and history as parquet partitions under this directory")
	runCmd.Flags().BoolVar(&cleanOutput, "clean-output", false, "Empty --output-dir before running")
	runCmd.Flags().StringVar(&metricsTextfile, "metrics-textfile", "", "Write run metrics in Prometheus textfile format")
	runCmd.Flags().StringVar(&traceLevel, "trace-level", "none", "Decision trace level (none, periods)")

	// Recommend configs
	recommendCmd.Flags().StringVar(&historyGlob, "history", "", "Glob of history parquet partitions")
	recommendCmd.Flags().IntSliceVar(&armIDs, "arms", []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, "Comma-separated arm ids")

	rootCmd.AddCommand(runCmd, recommendCmd, cleanCmd)
}
