package cmd

import (
	"log"
	"os"
	"time"

	"github.com/merlin-pgm/merlin/config"
)

// startupParams collects the parsed CLI flags plus the loggers that every
// subcommand writes through, mirroring how grample threaded a single
// params/logger bundle into its command functions instead of reaching for
// package-level globals inside them.
type startupParams struct {
	modelFile    string
	evidenceFile string
	virtualFile  string
	queryFile    string
	datasetFile  string
	outputFile   string
	traceFile    string

	verboseLevel int
	debug        bool
	positive     bool
	monitor      bool

	opts *config.Options

	out   *log.Logger
	trace *log.Logger
}

func newStartupParams() *startupParams {
	sp := &startupParams{
		modelFile:    modelFile,
		evidenceFile: evidenceFile,
		virtualFile:  virtualFile,
		queryFile:    queryFile,
		datasetFile:  datasetFile,
		outputFile:   outputFile,
		traceFile:    traceFile,
		verboseLevel: verboseLevel,
		debug:        debugMode,
		positive:     positiveMode,
		monitor:      monitorMode,
		out:          log.New(os.Stderr, "", 0),
	}

	if sp.traceFile != "" {
		f, err := os.Create(sp.traceFile)
		if err == nil {
			sp.trace = log.New(f, "", log.LstdFlags)
		}
	}
	if sp.trace == nil {
		sp.trace = log.New(os.Stderr, "[trace] ", 0)
	}

	sp.opts = buildOptions()
	return sp
}

// buildOptions translates the parsed flags into a config.Options, the typed
// record every engine actually consumes.
func buildOptions() *config.Options {
	o := config.Default()
	o.Algorithm = algorithm
	o.Task = task
	o.IBound = iBound
	o.Iter = iterCount
	o.SampleCount = sampleCount
	o.Threshold = threshold
	o.Alpha = alpha
	o.Seed = randomSeed
	o.Debug = debugMode
	o.Verbose = verboseLevel > 0
	o.StopIter = iterCount
	o.StopObj = threshold
	o.StopMsg = threshold

	switch initFactors {
	case "uniform":
		o.Init = config.InitUniform
	case "random":
		o.Init = config.InitRandom
	default:
		o.Init = config.InitModel
	}

	switch schedule {
	case "fixed":
		o.Schedule = config.ScheduleFixed
	case "priority":
		o.Schedule = config.SchedulePriority
	default:
		o.Schedule = config.ScheduleFlood
	}

	if timeLimit > 0 {
		o.TimeLimit = time.Duration(timeLimit * float64(time.Second))
	}

	return o
}
