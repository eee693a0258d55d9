package model

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteUAI emits a Result in the UAI text output format (§6): a task tag,
// the scalar value in fixed and scientific notation, a STATUS line, and for
// MAR a per-variable categorical distribution (evidence variables emit a
// point mass at their observed value). Dummy U variables introduced for
// virtual evidence must already have been filtered from r by the caller.
func WriteUAI(w io.Writer, r *Result, evidence EvidenceVector) error {
	fmt.Fprintf(w, "%s\n", r.Task)
	fmt.Fprintf(w, "%.6f %e\n", r.Value, r.Value)

	if r.Status {
		fmt.Fprintf(w, "STATUS\ntrue:ok\n")
	} else {
		fmt.Fprintf(w, "STATUS\nfalse:%s\n", r.Message)
	}

	if r.Task == "MAR" && r.Marginals != nil {
		fmt.Fprintf(w, "MAR\n%d\n", len(r.Marginals))
		for label := 0; label < len(r.Marginals); label++ {
			dist, ok := r.Marginals[label]
			if !ok {
				continue
			}
			if ev := evidence.Get(label); ev >= 0 {
				dist = pointMass(ev, len(dist))
			}
			fmt.Fprintf(w, "%d", len(dist))
			for _, p := range dist {
				fmt.Fprintf(w, " %.6f", p)
			}
			fmt.Fprintf(w, "\n")
		}
	}

	if (r.Task == "MAP" || r.Task == "MMAP") && r.Solution != nil {
		fmt.Fprintf(w, "%s\n%d", r.Task, len(r.Solution))
		for _, v := range r.Solution {
			fmt.Fprintf(w, " %d", v)
		}
		fmt.Fprintf(w, "\n")
	}

	return nil
}

func pointMass(val, card int) []float64 {
	out := make([]float64, card)
	if val >= 0 && val < card {
		out[val] = 1.0
	}
	return out
}

// jsonResult mirrors Result's public fields for §6's JSON output object.
type jsonResult struct {
	Algorithm     string             `json:"algorithm"`
	Task          string             `json:"task"`
	Value         float64            `json:"value"`
	Status        bool               `json:"status"`
	Message       string             `json:"message"`
	Marginals     map[string][]float64 `json:"marginals,omitempty"`
	Solution      []int              `json:"solution,omitempty"`
	JointMarginal *jointMarginalJSON `json:"joint_marginal,omitempty"`
}

type jointMarginalJSON struct {
	Scope  []int     `json:"scope"`
	Values []float64 `json:"values"`
}

// WriteJSON emits a Result as the §6 JSON output object.
func WriteJSON(w io.Writer, r *Result, evidence EvidenceVector) error {
	out := jsonResult{
		Algorithm: r.Algorithm,
		Task:      r.Task,
		Value:     r.Value,
		Status:    r.Status,
		Message:   r.Message,
		Solution:  r.Solution,
	}

	if r.Marginals != nil {
		out.Marginals = make(map[string][]float64, len(r.Marginals))
		for label, dist := range r.Marginals {
			if ev := evidence.Get(label); ev >= 0 {
				dist = pointMass(ev, len(dist))
			}
			out.Marginals[fmt.Sprintf("%d", label)] = dist
		}
	}

	if r.QueryScope != nil {
		out.JointMarginal = &jointMarginalJSON{Scope: r.QueryScope, Values: r.JointMarginal}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
