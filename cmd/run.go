package cmd

import (
	"io/ioutil"
	"os"

	"github.com/pkg/errors"

	"github.com/merlin-pgm/merlin/em"
	"github.com/merlin-pgm/merlin/engine"
	"github.com/merlin-pgm/merlin/model"
	"github.com/merlin-pgm/merlin/rand"
)

// positiveEpsilon replaces any zero probability in m's factors with a tiny
// positive value, the --positive flag's effect: some engines (notably LBP's
// message normalization) are undefined over an all-zero row.
const positiveEpsilon = 1e-9

// compatible is the §6 task/algorithm compatibility matrix: which
// algorithms may be asked to run which task.
var compatible = map[string]map[string]bool{
	"PR":   {"wmb": true, "bte": true},
	"MAR":  {"wmb": true, "ijgp": true, "lbp": true, "gibbs": true, "bte": true, "cte": true},
	"MAP":  {"wmb": true, "jglp": true, "ijgp": true, "gibbs": true, "bte": true},
	"MMAP": {"wmb": true},
	"EM":   {"cte": true, "bte": true, "wmb": true},
}

// RunInference reads the model (and any evidence/virtual-evidence/query/
// dataset files) named by sp, dispatches to the algorithm named by
// sp.opts.Algorithm, and writes the resulting model.Result to sp's output.
func RunInference(sp *startupParams) error {
	if !compatible[sp.opts.Task][sp.opts.Algorithm] {
		return errors.Errorf("algorithm %q does not support task %q", sp.opts.Algorithm, sp.opts.Task)
	}

	var mon *monitor
	if sp.monitor {
		mon = &monitor{}
		if err := mon.Start(); err != nil {
			return err
		}
		defer mon.Stop()
	}

	m, err := readModel(sp)
	if err != nil {
		return err
	}
	sp.out.Printf("Model has %d vars and %d functions\n", len(m.Vars), len(m.Funcs))

	gen, err := rand.NewGenerator(sp.opts.Seed)
	if err != nil {
		return errors.Wrap(err, "could not start RNG")
	}

	if sp.opts.Task == "EM" {
		return runEM(sp, m, gen, mon)
	}

	ev, err := readEvidence(sp, m)
	if err != nil {
		return err
	}

	ev, err = applyVirtualEvidence(sp, m, ev)
	if err != nil {
		return err
	}

	var result *model.Result
	switch sp.opts.Algorithm {
	case "bte":
		result, err = engine.RunBTE(m, ev, sp.opts, gen)
	case "cte":
		result, err = engine.RunCTE(m, ev, sp.opts, gen)
	case "wmb":
		result, err = runWMBOrMMAP(sp, m, ev, gen)
	case "ijgp":
		result, err = engine.RunIJGP(m, ev, sp.opts, gen)
	case "jglp":
		result, err = engine.RunJGLP(m, ev, sp.opts, gen)
	case "lbp":
		result, err = engine.RunLBP(m, ev, sp.opts, gen)
	case "gibbs":
		result, err = engine.RunGibbs(m, ev, sp.opts, gen)
	default:
		return errors.Errorf("unknown algorithm %q", sp.opts.Algorithm)
	}
	if err != nil {
		return err
	}

	return writeResult(sp, result, ev)
}

// runWMBOrMMAP picks between WMB's own engine for PR/MAR/MAP and the
// dedicated joint-marginal re-elimination for MMAP, since mini-bucket
// message passing alone does not expose a joint table over an arbitrary
// query scope.
func runWMBOrMMAP(sp *startupParams, m *model.GraphicalModel, ev model.EvidenceVector, gen *rand.Generator) (*model.Result, error) {
	if sp.opts.Task != "MMAP" {
		return engine.RunWMB(m, ev, sp.opts, gen)
	}
	query, err := readQuery(sp, m)
	if err != nil {
		return nil, err
	}
	return engine.RunJointMarginal(m, ev, query, sp.opts, gen)
}

func runEM(sp *startupParams, m *model.GraphicalModel, gen *rand.Generator, mon *monitor) error {
	if sp.datasetFile == "" {
		return errors.New("EM task requires --dataset")
	}
	data, err := ioutil.ReadFile(sp.datasetFile)
	if err != nil {
		return errors.Wrapf(err, "could not read dataset file %s", sp.datasetFile)
	}
	examples, err := model.ParseDataset(data)
	if err != nil {
		return errors.Wrap(err, "could not parse dataset")
	}
	sp.out.Printf("Dataset has %d examples\n", len(examples))

	res, err := em.Run(m, examples, sp.opts, gen)
	if err != nil {
		return err
	}
	if mon != nil {
		mon.Iterations.Set(int64(len(res.LogLik)))
		if n := len(res.LogLik); n > 1 {
			mon.LastObjDelta.Set(res.LogLik[n-1] - res.LogLik[n-2])
		}
	}
	sp.out.Printf("EM finished after %d iterations (converged=%v)\n", len(res.LogLik), res.Converged)

	out := &model.Result{Algorithm: "em", Task: "EM", Status: true, Value: lastOf(res.LogLik)}
	return writeResult(sp, out, model.EvidenceVector{})
}

func lastOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return xs[len(xs)-1]
}

func readModel(sp *startupParams) (*model.GraphicalModel, error) {
	if sp.modelFile == "" {
		return nil, errors.New("--model is required")
	}
	data, err := ioutil.ReadFile(sp.modelFile)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read model file %s", sp.modelFile)
	}
	m, err := model.UAIReader{}.ReadModel(data)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse model")
	}
	if sp.positive {
		applyPositiveEpsilon(m)
	}
	return m, nil
}

func applyPositiveEpsilon(m *model.GraphicalModel) {
	for _, f := range m.Funcs {
		for i, v := range f.Values {
			if v == 0 {
				f.Values[i] = positiveEpsilon
			}
		}
	}
}

func readEvidence(sp *startupParams, m *model.GraphicalModel) (model.EvidenceVector, error) {
	ev := make(model.EvidenceVector, len(m.Vars))
	for i := range ev {
		ev[i] = -1
	}
	if sp.evidenceFile == "" {
		return ev, nil
	}
	data, err := ioutil.ReadFile(sp.evidenceFile)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read evidence file %s", sp.evidenceFile)
	}
	parsed, err := model.ParseEvidence(data, len(m.Vars))
	if err != nil {
		return nil, errors.Wrap(err, "could not parse evidence")
	}
	return parsed, nil
}

func applyVirtualEvidence(sp *startupParams, m *model.GraphicalModel, ev model.EvidenceVector) (model.EvidenceVector, error) {
	if sp.virtualFile == "" {
		return ev, nil
	}
	data, err := ioutil.ReadFile(sp.virtualFile)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read virtual evidence file %s", sp.virtualFile)
	}
	obs, err := model.UAIReader{}.ApplyVirtualEvidence(data)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse virtual evidence")
	}
	for _, o := range obs {
		aug, auxLabel, err := m.AugmentWithIndicator(o)
		if err != nil {
			return nil, err
		}
		*m = *aug
		ev = append(ev, -1)
		ev[auxLabel] = 0
	}
	return ev, nil
}

func readQuery(sp *startupParams, m *model.GraphicalModel) ([]int, error) {
	if sp.queryFile == "" {
		return nil, errors.New("MMAP task requires --query")
	}
	data, err := ioutil.ReadFile(sp.queryFile)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read query file %s", sp.queryFile)
	}
	return model.UAIReader{}.ReadQuery(data)
}

func writeResult(sp *startupParams, r *model.Result, ev model.EvidenceVector) error {
	w := os.Stdout
	if sp.outputFile != "" {
		f, err := os.Create(sp.outputFile)
		if err != nil {
			return errors.Wrapf(err, "could not create output file %s", sp.outputFile)
		}
		defer f.Close()
		if outputFormat == "json" {
			return model.WriteJSON(f, r, ev)
		}
		return model.WriteUAI(f, r, ev)
	}
	if outputFormat == "json" {
		return model.WriteJSON(w, r, ev)
	}
	return model.WriteUAI(w, r, ev)
}
