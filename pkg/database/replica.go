package database

import (
	"fmt"
	"sync"
	"sync/atomic"

	"gorm.io/gorm"
)

// ReplicaConfig configures one read replica.
type ReplicaConfig struct {
	Config
	Weight int
}

// Replica is a read-only connection pool with a selection weight.
type Replica struct {
	DB     *gorm.DB
	Weight int
}

// ReplicaPolicy chooses the pool a read runs against. Index -1 selects the
// primary.
type ReplicaPolicy interface {
	Pick(replicas []Replica) int
}

// Cluster routes writes to the primary and reads through a ReplicaPolicy.
type Cluster struct {
	Primary  *gorm.DB
	Replicas []Replica
	Policy   ReplicaPolicy
}

// Single returns a cluster without replicas.
func Single(db *gorm.DB) *Cluster {
	return &Cluster{Primary: db}
}

// Writer returns the primary.
func (c *Cluster) Writer() *gorm.DB {
	return c.Primary
}

// Reader returns the pool selected by the policy, or the primary.
func (c *Cluster) Reader() *gorm.DB {
	if c.Policy == nil || len(c.Replicas) == 0 {
		return c.Primary
	}
	i := c.Policy.Pick(c.Replicas)
	if i < 0 || i >= len(c.Replicas) {
		return c.Primary
	}
	return c.Replicas[i].DB
}

// PrimaryOnly sends every read to the primary.
type PrimaryOnly struct{}

func (PrimaryOnly) Pick([]Replica) int { return -1 }

// RoundRobin cycles through the replicas.
type RoundRobin struct {
	next atomic.Uint64
}

func (r *RoundRobin) Pick(replicas []Replica) int {
	if len(replicas) == 0 {
		return -1
	}
	n := r.next.Add(1) - 1
	return int(n % uint64(len(replicas)))
}

// Weighted spreads reads across replicas in proportion to their weights using
// smooth weighted round-robin, so the sequence is deterministic. Replicas with
// a non-positive weight are never picked.
type Weighted struct {
	mu      sync.Mutex
	current []int
}

func (w *Weighted) Pick(replicas []Replica) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.current) != len(replicas) {
		w.current = make([]int, len(replicas))
	}

	best, total := -1, 0
	for i, r := range replicas {
		if r.Weight <= 0 {
			continue
		}
		w.current[i] += r.Weight
		total += r.Weight
		if best == -1 || w.current[i] > w.current[best] {
			best = i
		}
	}
	if best >= 0 {
		w.current[best] -= total
	}
	return best
}

// Policy names accepted in configuration.
const (
	PolicyPrimary    = "primary"
	PolicyRoundRobin = "round_robin"
	PolicyWeighted   = "weighted"
)

// ParsePolicy returns the policy for a configuration name.
func ParsePolicy(name string) (ReplicaPolicy, error) {
	switch name {
	case "", PolicyPrimary:
		return PrimaryOnly{}, nil
	case PolicyRoundRobin:
		return &RoundRobin{}, nil
	case PolicyWeighted:
		return &Weighted{}, nil
	}
	return nil, fmt.Errorf("unknown replica policy %q", name)
}
