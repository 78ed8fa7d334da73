// Package trust stores the directed weighted trust graph: who endorses
// whom, and by how much. All iteration-order-sensitive lookups go
// through explicit ordered indexes so results are deterministic.
package trust

import (
	"fmt"

	"github.com/creditmesh/chitengine/internal/domain"
	"github.com/creditmesh/chitengine/internal/fixed"
)

type edgeKey struct {
	from domain.Account
	to   domain.Account
}

// Graph holds trust edges and per-source aggregates. Not safe for
// concurrent use; the engine serializes all mutation.
type Graph struct {
	weights map[edgeKey]fixed.Num
	outSums map[domain.Account]fixed.Num

	// inbound records, per target, the distinct sources that have ever
	// set a nonzero weight toward it, in first-set order. Entries are
	// never removed, even when the weight later returns to zero.
	inbound map[domain.Account][]domain.Account
	seen    map[edgeKey]bool

	sink domain.EventSink
}

// NewGraph creates an empty trust graph emitting to sink.
func NewGraph(sink domain.EventSink) *Graph {
	if sink == nil {
		sink = domain.NopSink{}
	}
	return &Graph{
		weights: make(map[edgeKey]fixed.Num),
		outSums: make(map[domain.Account]fixed.Num),
		inbound: make(map[domain.Account][]domain.Account),
		seen:    make(map[edgeKey]bool),
		sink:    sink,
	}
}

// SetTrust sets the weight of the from→to edge. Weight must not exceed
// SCALE. The per-source outgoing sum is adjusted by the delta, and the
// first nonzero set appends from to the target's inbound index. Setting
// zero logically removes the edge but keeps it queryable as zero.
func (g *Graph) SetTrust(from, to domain.Account, weight fixed.Num) error {
	scale := fixed.Scale()
	if weight.Gt(&scale) {
		return fmt.Errorf("trust: set %s -> %s: %w", from, to, domain.ErrInvalidWeight)
	}

	key := edgeKey{from: from, to: to}
	old := g.weights[key]

	// outSum' = outSum - old + weight. Each edge is bounded by SCALE so
	// the intermediate sum cannot underflow, and overflow of the total
	// is fatal.
	sum := g.outSums[from]
	sum, err := fixed.Sub(sum, old)
	if err != nil {
		return fmt.Errorf("trust: out sum underflow for %s: %w", from, err)
	}
	sum, err = fixed.Add(sum, weight)
	if err != nil {
		return fmt.Errorf("trust: out sum for %s: %w", from, err)
	}

	g.weights[key] = weight
	g.outSums[from] = sum

	if !weight.IsZero() && !g.seen[key] {
		g.seen[key] = true
		g.inbound[to] = append(g.inbound[to], from)
	}

	g.sink.Emit(domain.TrustChangedEvent{From: from, To: to, Weight: weight})
	return nil
}

// Weight returns the edge weight, zero for unset edges.
func (g *Graph) Weight(from, to domain.Account) fixed.Num {
	return g.weights[edgeKey{from: from, to: to}]
}

// OutWeightSum returns the sum of all weights from has set.
func (g *Graph) OutWeightSum(from domain.Account) fixed.Num {
	return g.outSums[from]
}

// InboundTrusters returns the accounts that have ever set a nonzero
// weight toward to, in first-set order. The returned slice is a copy.
func (g *Graph) InboundTrusters(to domain.Account) []domain.Account {
	src := g.inbound[to]
	out := make([]domain.Account, len(src))
	copy(out, src)
	return out
}
