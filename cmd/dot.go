package cmd

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/spf13/cobra"

	"github.com/pkg/errors"

	"github.com/merlin-pgm/merlin/model"
)

var dotCmd = &cobra.Command{
	Use:   "dot",
	Short: "Emit a graphviz description of a model's primal graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		return DotOutput(newStartupParams())
	},
}

func init() {
	rootCmd.AddCommand(dotCmd)
}

// DotOutput reads a model file and writes a graphviz description of its
// primal graph (an edge between any two variables that co-occur in some
// factor's scope) to sp's output file, or stdout.
func DotOutput(sp *startupParams) error {
	data, err := ioutil.ReadFile(sp.modelFile)
	if err != nil {
		return errors.Wrapf(err, "could not read model file %s", sp.modelFile)
	}
	m, err := model.UAIReader{}.ReadModel(data)
	if err != nil {
		return errors.Wrap(err, "could not parse model")
	}
	sp.out.Printf("Model has %d vars and %d functions\n", len(m.Vars), len(m.Funcs))

	g := m.PrimalGraph()

	var w io.Writer = os.Stdout
	if sp.outputFile != "" {
		f, err := os.Create(sp.outputFile)
		if err != nil {
			return errors.Wrapf(err, "could not create output file %s", sp.outputFile)
		}
		defer f.Close()
		w = f
	}

	fmt.Fprintf(w, "strict graph G {\n")
	for _, v1 := range g.Nodes() {
		for _, v2 := range g.Neighbors(v1) {
			if v2 > v1 {
				fmt.Fprintf(w, "    v%d -- v%d;\n", v1, v2)
			}
		}
	}
	fmt.Fprintf(w, "}\n")

	return nil
}
