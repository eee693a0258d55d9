package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/merlin-pgm/merlin/rand"
)

func TestOrderMinFillIsAPermutation(t *testing.T) {
	assert := assert.New(t)
	m := chainModel(t)

	order, err := m.Order(MinFill, nil)
	assert.NoError(err)
	assert.ElementsMatch([]int{0, 1, 2, 3}, order)
}

func TestOrderRandomIsAPermutation(t *testing.T) {
	assert := assert.New(t)
	m := chainModel(t)

	gen, err := rand.NewGenerator(42)
	assert.NoError(err)

	order, err := m.Order(Random, gen)
	assert.NoError(err)
	assert.ElementsMatch([]int{0, 1, 2, 3}, order)
}

func TestInducedWidthOfAChainIsSmall(t *testing.T) {
	assert := assert.New(t)
	m := chainModel(t)

	// Eliminating in chain order 0,1,2,3 never creates fill-in; each
	// elimination step has at most one later neighbor, for width 2.
	w := m.InducedWidth([]int{0, 1, 2, 3})
	assert.Equal(2, w)
}

func TestPseudoTreeRootHasNoParent(t *testing.T) {
	assert := assert.New(t)
	m := chainModel(t)

	parent := m.PseudoTree([]int{3, 2, 1, 0})
	assert.Equal(-1, parent[3])
	assert.Equal(3, parent[2])
	assert.Equal(2, parent[1])
	assert.Equal(1, parent[0])
}

func TestBestOrderPicksAValidOrder(t *testing.T) {
	assert := assert.New(t)
	m := chainModel(t)

	order, _ := m.BestOrder()
	assert.ElementsMatch([]int{0, 1, 2, 3}, order)
}
