package engine

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/merlin-pgm/merlin/config"
	"github.com/merlin-pgm/merlin/model"
	"github.com/merlin-pgm/merlin/rand"
)

// lbpState holds loopy belief propagation's own bipartite factor graph:
// one message per (variable, factor) direction, independent of the
// cluster-graph machinery the other engines share, since LBP passes
// messages directly between variables and the model's original factors
// rather than between elimination clusters.
type lbpState struct {
	m        *model.GraphicalModel
	varToFac map[int]map[int]*model.Factor
	facToVar map[int]map[int]*model.Factor
}

func newLBPState(m *model.GraphicalModel) *lbpState {
	s := &lbpState{
		m:        m,
		varToFac: make(map[int]map[int]*model.Factor),
		facToVar: make(map[int]map[int]*model.Factor),
	}
	for _, v := range m.Vars {
		s.varToFac[v.Label] = make(map[int]*model.Factor)
		vs, _ := model.NewVariableSet(v)
		for fi := range m.Funcs {
			if m.Funcs[fi].Scope.Contains(v.Label) {
				uniform := model.NewFactor(vs)
				for i := range uniform.Values {
					uniform.Values[i] = 1.0
				}
				s.varToFac[v.Label][fi] = uniform
			}
		}
	}
	for fi, f := range m.Funcs {
		s.facToVar[fi] = make(map[int]*model.Factor)
		for _, v := range f.Scope.Vars() {
			vs, _ := model.NewVariableSet(v)
			uniform := model.NewFactor(vs)
			for i := range uniform.Values {
				uniform.Values[i] = 1.0
			}
			s.facToVar[fi][v.Label] = uniform
		}
	}
	return s
}

func (s *lbpState) updateVarToFactor(v int, fi int) (*model.Factor, error) {
	var prod *model.Factor
	for gi, msg := range s.facToVar {
		if gi == fi {
			continue
		}
		if _, ok := msg[v]; !ok {
			continue
		}
		if prod == nil {
			prod = msg[v].Clone()
		} else {
			prod = model.Product(prod, msg[v])
		}
	}
	if prod == nil {
		vr, _ := s.m.VarByLabel(v)
		vs, _ := model.NewVariableSet(vr)
		prod = model.NewFactor(vs)
		for i := range prod.Values {
			prod.Values[i] = 1.0
		}
	}
	out, err := prod.Normalize()
	if err != nil {
		return prod, nil
	}
	return out, nil
}

func (s *lbpState) updateFactorToVar(fi int, v int) (*model.Factor, error) {
	f := s.m.Funcs[fi]
	belief := f.Clone()
	for _, u := range f.Scope.Vars() {
		if u.Label == v {
			continue
		}
		msg, ok := s.varToFac[u.Label][fi]
		if !ok {
			continue
		}
		belief = model.Product(belief, msg)
	}

	vr, err := s.m.VarByLabel(v)
	if err != nil {
		return nil, err
	}
	vs, err := model.NewVariableSet(vr)
	if err != nil {
		return nil, err
	}
	marg := belief.Marginal(vs)
	out, err := marg.Normalize()
	if err != nil {
		return marg, nil
	}
	return out, nil
}

// betheLogZ recomputes each factor belief (the factor's potential times
// its incoming variable messages) and each variable belief (the product
// of its incoming factor messages) from the current message state and
// folds them into the Bethe free-energy estimate of logZ:
//
//	logZ = sum_f sum_x bf(x) log(psi_f(x)/bf(x)) - sum_v (deg(v)-1) H(bv)
//
// exact when the factor graph is a tree, and an approximation, not a
// bound, when it has cycles.
func (s *lbpState) betheLogZ() float64 {
	logZ := 0.0

	for fi, f := range s.m.Funcs {
		belief := f.Clone()
		for _, v := range f.Scope.Vars() {
			if msg, ok := s.varToFac[v.Label][fi]; ok {
				belief = model.Product(belief, msg)
			}
		}
		bf, err := belief.Normalize()
		if err != nil {
			bf = belief
		}
		for i, b := range bf.Values {
			if b <= 0 || f.Values[i] <= 0 {
				continue
			}
			logZ += b * (math.Log(f.Values[i]) - math.Log(b))
		}
	}

	for _, v := range s.m.Vars {
		var belief *model.Factor
		for _, msg := range s.facToVar {
			vmsg, ok := msg[v.Label]
			if !ok {
				continue
			}
			if belief == nil {
				belief = vmsg.Clone()
			} else {
				belief = model.Product(belief, vmsg)
			}
		}
		if belief == nil {
			continue
		}
		bv, err := belief.Normalize()
		if err != nil {
			bv = belief
		}

		entropy := 0.0
		for _, b := range bv.Values {
			if b <= 0 {
				continue
			}
			entropy -= b * math.Log(b)
		}
		degree := len(s.varToFac[v.Label])
		logZ -= float64(degree-1) * entropy
	}

	return logZ
}

// RunLBP runs loopy belief propagation on the evidence-conditioned
// model's bipartite factor graph, using opts.Schedule to pick message
// order and opts.StopMsg / opts.StopIter to decide convergence.
func RunLBP(m *model.GraphicalModel, ev model.EvidenceVector, opts *config.Options, gen *rand.Generator) (*model.Result, error) {
	m2, oldToNew, logConst, err := m.AssertEvidence(ev)
	if err != nil {
		return nil, errors.Wrap(err, "could not assert evidence")
	}
	if math.IsInf(logConst, -1) {
		return inconsistentEvidence("lbp", opts.Task), nil
	}

	newToOld := make(map[int]int, len(oldToNew))
	for old, nw := range oldToNew {
		newToOld[nw] = old
	}

	s := newLBPState(m2)

	type key struct {
		v, f int
	}
	var varFacKeys, facVarKeys []key
	for v, facs := range s.varToFac {
		for fi := range facs {
			varFacKeys = append(varFacKeys, key{v, fi})
		}
	}
	for fi, vars := range s.facToVar {
		for v := range vars {
			facVarKeys = append(facVarKeys, key{v, fi})
		}
	}
	sort.Slice(varFacKeys, func(i, j int) bool {
		if varFacKeys[i].v != varFacKeys[j].v {
			return varFacKeys[i].v < varFacKeys[j].v
		}
		return varFacKeys[i].f < varFacKeys[j].f
	})
	sort.Slice(facVarKeys, func(i, j int) bool {
		if facVarKeys[i].f != facVarKeys[j].f {
			return facVarKeys[i].f < facVarKeys[j].f
		}
		return facVarKeys[i].v < facVarKeys[j].v
	})

	stopIter := opts.StopIter
	if stopIter < 1 {
		stopIter = 1
	}

	for iter := 0; iter < stopIter; iter++ {
		maxDelta := 0.0

		// ScheduleFixed and SchedulePriority both update in a stable,
		// deterministic order (priority ranking collapses to the same
		// fixed order without a genuine residual-driven queue); Flood
		// computes every message from the previous round's values.
		if opts.Schedule == config.ScheduleFlood {
			newVarToFac := cloneMsgMap(s.varToFac)
			for _, k := range varFacKeys {
				msg, err := s.updateVarToFactor(k.v, k.f)
				if err != nil {
					return nil, err
				}
				newVarToFac[k.v][k.f] = msg
			}
			newFacToVar := cloneMsgMap(s.facToVar)
			for _, k := range facVarKeys {
				msg, err := s.updateFactorToVar(k.f, k.v)
				if err != nil {
					return nil, err
				}
				d, _ := msg.Distance(s.facToVar[k.f][k.v], opts.Distance)
				if d > maxDelta {
					maxDelta = d
				}
				newFacToVar[k.f][k.v] = msg
			}
			s.varToFac = newVarToFac
			s.facToVar = newFacToVar
		} else {
			for _, k := range varFacKeys {
				msg, err := s.updateVarToFactor(k.v, k.f)
				if err != nil {
					return nil, err
				}
				s.varToFac[k.v][k.f] = msg
			}
			for _, k := range facVarKeys {
				old := s.facToVar[k.f][k.v]
				msg, err := s.updateFactorToVar(k.f, k.v)
				if err != nil {
					return nil, err
				}
				d, _ := msg.Distance(old, opts.Distance)
				if d > maxDelta {
					maxDelta = d
				}
				s.facToVar[k.f][k.v] = msg
			}
		}

		if iter > 0 && maxDelta < opts.StopMsg {
			break
		}
	}

	value := s.betheLogZ() + logConst
	r := &model.Result{Algorithm: "lbp", Task: opts.Task, Value: value, Status: true}

	marg := make(model.Marginals, len(m2.Vars))
	for _, v := range m2.Vars {
		var belief *model.Factor
		for _, msg := range s.facToVar {
			if _, ok := msg[v.Label]; !ok {
				continue
			}
			if belief == nil {
				belief = msg[v.Label].Clone()
			} else {
				belief = model.Product(belief, msg[v.Label])
			}
		}
		if belief == nil {
			continue
		}
		norm, err := belief.Normalize()
		if err != nil {
			norm = belief
		}
		marg[newToOld[v.Label]] = norm.Values
	}
	r.Marginals = marg

	if opts.Task == "MAP" {
		sol := make([]int, len(m.Vars))
		for i := range sol {
			sol[i] = -1
		}
		for label, dist := range marg {
			best := 0
			for i, p := range dist {
				if p > dist[best] {
					best = i
				}
			}
			sol[label] = best
		}
		for label, val := range ev {
			if val >= 0 && label < len(sol) {
				sol[label] = val
			}
		}
		r.Solution = sol
	}

	return r, nil
}

func cloneMsgMap(m map[int]map[int]*model.Factor) map[int]map[int]*model.Factor {
	out := make(map[int]map[int]*model.Factor, len(m))
	for k, inner := range m {
		cp := make(map[int]*model.Factor, len(inner))
		for ik, v := range inner {
			cp[ik] = v
		}
		out[k] = cp
	}
	return out
}
