package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	modelFile     string
	evidenceFile  string
	virtualFile   string
	queryFile     string
	datasetFile   string
	outputFile    string
	traceFile     string

	algorithm    string
	task         string
	iBound       int
	timeLimit    float64
	randomSeed   int64
	iterCount    int
	sampleCount  int
	threshold    float64
	alpha        float64
	initFactors  string
	outputFormat string
	schedule     string

	verboseLevel int
	debugMode    bool
	positiveMode bool
	monitorMode  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "merlin",
	Short: "Exact and approximate inference over discrete graphical models",
	Long: `merlin reads a UAI-format graphical model plus optional evidence,
virtual evidence, and query files, then runs one of several inference
algorithms against it:

  - bte:      exact bucket-tree elimination (PR, MAR, MAP)
  - cte:      exact clique-tree elimination (MAR)
  - wmb:      weighted mini-bucket elimination (PR, MAR, MAP, MMAP)
  - ijgp:     iterative join-graph propagation (MAR, MAP)
  - jglp:     join-graph propagation with max-product cost-shifting (MAP)
  - lbp:      loopy belief propagation on the factor graph (MAR)
  - gibbs:    single-chain Gibbs sampling (MAR, MAP)

as well as EM parameter learning from a dataset file (E-step via bte,
cte or wmb).
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunInference(newStartupParams())
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	rootCmd.PersistentFlags().StringVarP(&modelFile, "model", "m", "", "UAI model file to read (required)")
	rootCmd.PersistentFlags().StringVarP(&evidenceFile, "evidence", "e", "", "evidence file")
	rootCmd.PersistentFlags().StringVar(&virtualFile, "virtual-evidence", "", "virtual evidence file")
	rootCmd.PersistentFlags().StringVarP(&queryFile, "query", "q", "", "query file (MMAP subset / joint-marginal scope)")
	rootCmd.PersistentFlags().StringVar(&datasetFile, "dataset", "", "dataset file (EM task)")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default is stdout)")
	rootCmd.PersistentFlags().StringVar(&traceFile, "trace", "", "optional trace log file")

	rootCmd.PersistentFlags().StringVarP(&algorithm, "algorithm", "a", "bte", "inference algorithm: bte, cte, wmb, ijgp, jglp, lbp, gibbs")
	rootCmd.PersistentFlags().StringVarP(&task, "task", "t", "PR", "inference task: PR, MAR, MAP, MMAP, EM")
	rootCmd.PersistentFlags().IntVar(&iBound, "ibound", 10, "mini-bucket/join-graph i-bound")
	rootCmd.PersistentFlags().Float64Var(&timeLimit, "time-limit", 0, "wall-clock time limit in seconds (0 means unlimited)")
	rootCmd.PersistentFlags().Int64VarP(&randomSeed, "seed", "r", 12345, "random seed")
	rootCmd.PersistentFlags().IntVar(&iterCount, "iter", 20, "iteration count (IJGP/JGLP/LBP/EM)")
	rootCmd.PersistentFlags().IntVar(&sampleCount, "samples", 1000, "sample count (Gibbs)")
	rootCmd.PersistentFlags().Float64Var(&threshold, "threshold", 1e-4, "objective/log-likelihood convergence tolerance")
	rootCmd.PersistentFlags().Float64Var(&alpha, "alpha", 0.5, "step size for JGLP cost-shifting and WMB moment-matching; EM applies no prior")
	rootCmd.PersistentFlags().StringVar(&initFactors, "init", "none", "CPT re-initialization before EM: none, uniform, random")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output-format", "uai", "output format: uai or json")
	rootCmd.PersistentFlags().StringVar(&schedule, "schedule", "flood", "LBP message schedule: fixed, flood, priority")

	rootCmd.PersistentFlags().IntVarP(&verboseLevel, "verbose", "v", 0, "verbose level (0 is quiet)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&positiveMode, "positive", false, "replace zero probabilities with a tiny positive epsilon on load")
	rootCmd.PersistentFlags().BoolVar(&monitorMode, "monitor", false, "start an expvar HTTP monitor on :8000")

	rootCmd.MarkPersistentFlagRequired("model")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
