package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func replicas(weights ...int) []Replica {
	out := make([]Replica, len(weights))
	for i, w := range weights {
		out[i] = Replica{DB: &gorm.DB{}, Weight: w}
	}
	return out
}

func picks(p ReplicaPolicy, rs []Replica, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = p.Pick(rs)
	}
	return out
}

func TestRoundRobin(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2, 0, 1, 2}, picks(&RoundRobin{}, replicas(1, 1, 1), 6))
	assert.Equal(t, -1, (&RoundRobin{}).Pick(nil))
}

func TestWeighted(t *testing.T) {
	got := picks(&Weighted{}, replicas(5, 1, 1), 7)
	assert.Equal(t, []int{0, 0, 1, 0, 2, 0, 0}, got)

	counts := map[int]int{}
	for _, i := range picks(&Weighted{}, replicas(3, 1, 0), 400) {
		counts[i]++
	}
	assert.Equal(t, 300, counts[0])
	assert.Equal(t, 100, counts[1])
	assert.Zero(t, counts[2])

	assert.Equal(t, -1, (&Weighted{}).Pick(replicas(0, 0)))
}

func TestCluster_Routing(t *testing.T) {
	primary := &gorm.DB{}
	rs := replicas(1, 1)

	c := &Cluster{Primary: primary, Replicas: rs, Policy: PrimaryOnly{}}
	assert.Same(t, primary, c.Reader())
	assert.Same(t, primary, c.Writer())

	c.Policy = &RoundRobin{}
	assert.Same(t, rs[0].DB, c.Reader())
	assert.Same(t, rs[1].DB, c.Reader())
	assert.Same(t, primary, c.Writer())

	assert.Same(t, primary, Single(primary).Reader())
}

func TestParsePolicy(t *testing.T) {
	for _, name := range []string{"", PolicyPrimary, PolicyRoundRobin, PolicyWeighted} {
		p, err := ParsePolicy(name)
		require.NoError(t, err)
		assert.NotNil(t, p)
	}
	_, err := ParsePolicy("random")
	assert.Error(t, err)
}
