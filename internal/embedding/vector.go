package embedding

// Vector is a fixed-length embedding produced by a remote model. A nil
// Vector means "embedding absent" (generation failed or never ran), which is
// a first-class state distinct from a zero-length result.
type Vector []float32

func (v Vector) Dim() int { return len(v) }

// Compatible reports whether two vectors can be meaningfully compared.
// Either side being absent or a dimension mismatch makes the pair
// incomparable.
func (v Vector) Compatible(other Vector) bool {
	return len(v) > 0 && len(v) == len(other)
}
