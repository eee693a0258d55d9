package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/merlin-pgm/merlin/model"
)

func v(label, card int) model.Variable {
	return model.Variable{Label: label, Card: card}
}

func scope(labels ...int) *model.VariableSet {
	vars := make([]model.Variable, len(labels))
	for i, l := range labels {
		vars[i] = v(l, 2)
	}
	vs, _ := model.NewVariableSet(vars...)
	return vs
}

// chainModel builds a 4-variable binary Markov chain 0-1-2-3.
func chainModel(t *testing.T) *model.GraphicalModel {
	vars := []model.Variable{v(0, 2), v(1, 2), v(2, 2), v(3, 2)}

	f01, err := model.NewFactorFromValues(scope(0, 1), []float64{1, 2, 3, 4})
	assert.NoError(t, err)
	f12, err := model.NewFactorFromValues(scope(1, 2), []float64{1, 1, 1, 1})
	assert.NoError(t, err)
	f23, err := model.NewFactorFromValues(scope(2, 3), []float64{2, 1, 1, 2})
	assert.NoError(t, err)

	m, err := model.NewGraphicalModel(model.MARKOV, "chain", vars, []*model.Factor{f01, f12, f23})
	assert.NoError(t, err)
	return m
}

func TestNewBucketTreeCoversEveryVariable(t *testing.T) {
	assert := assert.New(t)
	m := chainModel(t)

	cg, err := NewBucketTree(m, []int{0, 1, 2, 3})
	assert.NoError(err)
	assert.Equal(4, len(cg.Clusters))

	for _, label := range []int{0, 1, 2, 3} {
		c, ok := cg.ClusterOf(label)
		assert.True(ok)
		assert.True(c.Scope.Contains(label))
	}

	// The last-eliminated variable's bucket has no later neighbor, so it
	// is the tree's single root.
	assert.Equal(1, len(cg.Roots))
	root := cg.Clusters[cg.Roots[0]]
	assert.True(root.Scope.Contains(3))
}

func TestNewBucketTreeAssignsEveryOriginalFactor(t *testing.T) {
	assert := assert.New(t)
	m := chainModel(t)

	cg, err := NewBucketTree(m, []int{0, 1, 2, 3})
	assert.NoError(err)

	total := 0
	for _, c := range cg.Clusters {
		total += len(c.Originals)
		assert.NotNil(c.Potential)
	}
	assert.Equal(len(m.Funcs), total)
}

func TestNewCliqueTreeBuildsConnectedTree(t *testing.T) {
	assert := assert.New(t)
	m := chainModel(t)

	cg, err := NewCliqueTree(m, []int{0, 1, 2, 3})
	assert.NoError(err)
	assert.Greater(len(cg.Clusters), 0)

	// Every non-root cluster has exactly one outgoing edge (a tree).
	nonRoot := 0
	for _, c := range cg.Clusters {
		if len(cg.Outgoing[c.ID]) > 0 {
			assert.Equal(1, len(cg.Outgoing[c.ID]))
			nonRoot++
		}
	}
	assert.Equal(len(cg.Clusters)-len(cg.Roots), nonRoot)
}

func TestNewCliqueTreeRejectsEmptyOrder(t *testing.T) {
	assert := assert.New(t)
	m := chainModel(t)

	_, err := NewCliqueTree(m, nil)
	assert.Error(err)
}

func TestNewMiniBucketGraphRespectsIBound(t *testing.T) {
	assert := assert.New(t)
	m := chainModel(t)

	cg, err := NewMiniBucketGraph(m, []int{0, 1, 2, 3}, 2)
	assert.NoError(err)
	for _, c := range cg.Clusters {
		assert.LessOrEqual(c.Scope.Size(), 2)
	}
}

func TestNewMiniBucketGraphRejectsBadIBound(t *testing.T) {
	assert := assert.New(t)
	m := chainModel(t)

	_, err := NewMiniBucketGraph(m, []int{0, 1, 2, 3}, 0)
	assert.Error(err)
}

func TestNewMiniBucketGraphWeightsSumToOnePerBucket(t *testing.T) {
	assert := assert.New(t)
	m := chainModel(t)

	cg, err := NewMiniBucketGraph(m, []int{0, 1, 2, 3}, 1)
	assert.NoError(err)

	byAnchor := make(map[int]float64)
	for _, c := range cg.Clusters {
		byAnchor[c.Anchor] += c.Weight.Value()
	}
	for _, total := range byAnchor {
		assert.InDelta(1.0, total, 1e-9)
	}
}

func TestPartitionMiniBucketsNeverExceedsBound(t *testing.T) {
	assert := assert.New(t)

	f1, _ := model.NewFactorFromValues(scope(0, 1), []float64{1, 1, 1, 1})
	f2, _ := model.NewFactorFromValues(scope(0, 2), []float64{1, 1, 1, 1})
	f3, _ := model.NewFactorFromValues(scope(0, 3), []float64{1, 1, 1, 1})

	groups := partitionMiniBuckets([]*model.Factor{f1, f2, f3}, 2)
	for _, grp := range groups {
		merged := grp[0].Scope.Clone()
		for _, f := range grp[1:] {
			merged = merged.Union(f.Scope)
		}
		assert.LessOrEqual(merged.Size(), 2)
	}
}

func TestPartitionMiniBucketsScoresBySumOfSizesNotUnionSize(t *testing.T) {
	assert := assert.New(t)

	// f1/f2 overlap beyond the shared anchor (variable 1), so their union
	// (size 4) ties f1/f3's union (also size 4); picking by union size
	// alone would merge f1 with f2 first. Scoring by the spec's
	// 1/(|scope_i|+|scope_j|) instead favors f1+f3 (sizes 3+2=5) over
	// f1+f2 (sizes 3+3=6), so f1 merges with f3.
	f1, _ := model.NewFactorFromValues(scope(0, 1, 2), []float64{1, 1, 1, 1, 1, 1, 1, 1})
	f2, _ := model.NewFactorFromValues(scope(0, 1, 3), []float64{1, 1, 1, 1, 1, 1, 1, 1})
	f3, _ := model.NewFactorFromValues(scope(0, 4), []float64{1, 1, 1, 1})

	groups := partitionMiniBuckets([]*model.Factor{f1, f2, f3}, 4)
	assert.Equal(2, len(groups))

	var withF1 []*model.Factor
	for _, grp := range groups {
		for _, f := range grp {
			if f == f1 {
				withF1 = grp
			}
		}
	}
	assert.Contains(withF1, f3)
	assert.NotContains(withF1, f2)
}

func TestPartitionMiniBucketsMergesWhenWithinBound(t *testing.T) {
	assert := assert.New(t)

	f1, _ := model.NewFactorFromValues(scope(0, 1), []float64{1, 1, 1, 1})
	f2, _ := model.NewFactorFromValues(scope(0, 1), []float64{1, 1, 1, 1})

	groups := partitionMiniBuckets([]*model.Factor{f1, f2}, 3)
	assert.Equal(1, len(groups))
	assert.Equal(2, len(groups[0]))
}
