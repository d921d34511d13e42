// Package flatindex implements an exact nearest-neighbour index over a
// contiguous float32 matrix. Slots are dense and assigned in append order.
package flatindex

import (
	"fmt"
	"io"
	"sort"

	"github.com/custodia-labs/docagent/internal/core/domain"
	"github.com/custodia-labs/docagent/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.SimilarityIndex = (*Index)(nil)

// Index stores vectors row-major in a single slice.
type Index struct {
	dim         int
	data        []float32
	compression domain.Compression
}

// New returns an empty index of the given dimension that serialises
// uncompressed.
func New(dim int) *Index {
	return &Index{dim: dim, compression: domain.CompressionNone}
}

// Dimension returns the vector size.
func (x *Index) Dimension() int { return x.dim }

// Len returns the number of stored vectors.
func (x *Index) Len() int {
	if x.dim == 0 {
		return 0
	}
	return len(x.data) / x.dim
}

// Append stores vectors at the next slots. Nothing is stored if any vector
// has the wrong dimension.
func (x *Index) Append(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != x.dim {
			return fmt.Errorf("%w: vector %d has dimension %d, index has %d",
				domain.ErrDimensionMismatch, i, len(v), x.dim)
		}
	}
	grown := make([]float32, len(x.data), len(x.data)+len(vectors)*x.dim)
	copy(grown, x.data)
	for _, v := range vectors {
		grown = append(grown, v...)
	}
	x.data = grown
	return nil
}

// Search returns up to k slots by ascending squared L2 distance. Equal
// distances are ordered by slot.
func (x *Index) Search(query []float32, k int) ([]driven.SlotHit, error) {
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d",
			domain.ErrDimensionMismatch, len(query), x.dim)
	}
	n := x.Len()
	if k <= 0 || n == 0 {
		return nil, nil
	}

	hits := make([]driven.SlotHit, n)
	for slot := 0; slot < n; slot++ {
		hits[slot] = driven.SlotHit{Slot: slot, Distance: squaredL2(query, x.row(slot))}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Slot < hits[j].Slot
	})

	if k < n {
		hits = hits[:k]
	}
	return hits, nil
}

// Vector returns a copy of the vector at slot.
func (x *Index) Vector(slot int) ([]float32, error) {
	if slot < 0 || slot >= x.Len() {
		return nil, fmt.Errorf("%w: slot %d out of range [0,%d)", domain.ErrNotFound, slot, x.Len())
	}
	out := make([]float32, x.dim)
	copy(out, x.row(slot))
	return out, nil
}

// Clone returns an independent copy.
func (x *Index) Clone() driven.SimilarityIndex {
	data := make([]float32, len(x.data))
	copy(data, x.data)
	return &Index{dim: x.dim, data: data, compression: x.compression}
}

// WriteTo serialises the index.
func (x *Index) WriteTo(w io.Writer) (int64, error) {
	return encode(w, x.dim, x.data, x.compression)
}

func (x *Index) row(slot int) []float32 {
	return x.data[slot*x.dim : (slot+1)*x.dim]
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Factory creates indexes that serialise with a fixed compression codec.
type Factory struct {
	compression domain.Compression
}

// Ensure Factory implements the interface.
var _ driven.SimilarityIndexFactory = (*Factory)(nil)

// NewFactory returns a factory. An invalid codec falls back to none.
func NewFactory(compression domain.Compression) *Factory {
	if !compression.IsValid() {
		compression = domain.CompressionNone
	}
	return &Factory{compression: compression}
}

// New returns an empty index of dimension dim.
func (f *Factory) New(dim int) driven.SimilarityIndex {
	return &Index{dim: dim, compression: f.compression}
}

// ReadFrom decodes an index. Malformed input yields domain.ErrCorruptIndex.
func (f *Factory) ReadFrom(r io.Reader) (driven.SimilarityIndex, error) {
	dim, data, err := decode(r)
	if err != nil {
		return nil, err
	}
	return &Index{dim: dim, data: data, compression: f.compression}, nil
}
