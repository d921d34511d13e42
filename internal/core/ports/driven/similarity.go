package driven

import "io"

// SimilarityIndex is a flat nearest-neighbour structure over float vectors.
// Vectors are addressed by dense 0-based slot numbers in insertion order.
// There is no delete primitive; removal means building a new index.
type SimilarityIndex interface {
	// Dimension returns the vector size every stored vector has.
	Dimension() int

	// Len returns the number of stored vectors.
	Len() int

	// Append stores vectors in order; slot numbers are assigned by position.
	// Vectors of the wrong dimension are rejected and nothing is stored.
	Append(vectors [][]float32) error

	// Search returns up to k slots ordered by ascending distance.
	Search(query []float32, k int) ([]SlotHit, error)

	// Vector returns a copy of the vector stored at slot.
	Vector(slot int) ([]float32, error)

	// Clone returns an independent copy.
	Clone() SimilarityIndex

	// WriteTo serialises the index.
	WriteTo(w io.Writer) (int64, error)
}

// SlotHit is a single search result.
type SlotHit struct {
	Slot int

	// Distance is the squared L2 distance to the query.
	Distance float32
}

// SimilarityIndexFactory creates and decodes similarity indexes.
type SimilarityIndexFactory interface {
	// New returns an empty index of the given dimension.
	New(dimension int) SimilarityIndex

	// ReadFrom decodes an index written by SimilarityIndex.WriteTo.
	ReadFrom(r io.Reader) (SimilarityIndex, error)
}
