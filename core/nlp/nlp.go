// Package nlp defines the extractive question-answering contract the
// dialogue core uses to pull structured answers (a user's name) out of free
// text.
package nlp

import "context"

// Extraction is one answer pulled from a context passage, scored with the
// model's confidence in [0,1].
type Extraction struct {
	Answer string
	Score  float64
}

// Extractor answers a question against a context passage.
type Extractor interface {
	Answer(ctx context.Context, question, passage string) (Extraction, error)
}
