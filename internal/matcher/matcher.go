// Package matcher holds the immutable identity table and the best-match rule
// used to recognize a face descriptor.
package matcher

import (
	"math"

	"github.com/amirhossein5/efl/attendance/internal/models"
)

// DistanceFunc measures how far apart two descriptors are.
type DistanceFunc func(a, b models.Descriptor) float64

// Identity is an enrolled person.
type Identity struct {
	Name       string
	Descriptor models.Descriptor
}

// Table is a fixed set of identities. It is safe for concurrent reads and
// cannot be modified after NewTable.
type Table struct {
	identities []Identity
	distance   DistanceFunc
}

type Option func(*Table)

// WithDistance replaces the Euclidean distance computed by Distance.
func WithDistance(fn DistanceFunc) Option {
	return func(t *Table) { t.distance = fn }
}

// NewTable copies identities into a new table.
func NewTable(identities []Identity, opts ...Option) *Table {
	cp := make([]Identity, len(identities))
	copy(cp, identities)
	t := &Table{identities: cp, distance: Distance}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.identities)
}

// Names returns the identity names in table order.
func (t *Table) Names() []string {
	names := make([]string, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		names = append(names, t.identities[i].Name)
	}
	return names
}

// Result is the outcome of matching one descriptor.
type Result struct {
	// Found is false when the table is empty.
	Found    bool
	Identity Identity
	Distance float64
	// Accepted reports whether Distance is within the tolerance.
	Accepted bool
}

// Best returns the identity closest to d. ok is false for an empty table.
func (t *Table) Best(d models.Descriptor) (best Identity, distance float64, ok bool) {
	distance = math.Inf(1)
	for i := 0; i < t.Len(); i++ {
		dist := t.distance(t.identities[i].Descriptor, d)
		if dist < distance {
			best, distance, ok = t.identities[i], dist, true
		}
	}
	return best, distance, ok
}

// Match selects the closest identity and then checks it against tolerance.
func (t *Table) Match(d models.Descriptor, tolerance float64) Result {
	best, distance, ok := t.Best(d)
	if !ok {
		return Result{}
	}
	return Result{
		Found:    true,
		Identity: best,
		Distance: distance,
		Accepted: distance <= tolerance,
	}
}

// Distance is the Euclidean distance between two descriptors.
func Distance(a, b models.Descriptor) float64 {
	var sum float64
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return math.Sqrt(sum)
}
