package extract

import (
	"github.com/hyperifyio/jobextract/internal/posting"
	"github.com/hyperifyio/jobextract/internal/vocab"
)

// Extractor turns raw markup into a best-effort JobPosting without any model
// call. Implementations must be deterministic and free of side effects.
type Extractor interface {
	Extract(input []byte) posting.JobPosting
}

// StructuralExtractor adapts Structural to the Extractor interface.
type StructuralExtractor struct {
	Vocab *vocab.Vocabulary
}

func (s StructuralExtractor) Extract(input []byte) posting.JobPosting {
	return Structural(input, s.Vocab)
}
