// Package voice holds the speaker-classification contract and the derived
// label mapping shared between the dialogue core and classifier backends.
package voice

import (
	"context"
	"sort"

	"github.com/kurtvoice/kurt-core/core/audio"
)

// Unknown is the sentinel identity for a speaker that could not be
// resolved. It is a valid label for recording purposes.
const Unknown = "Unknown"

// Prediction is a single classifier verdict with a confidence in [0,1].
type Prediction struct {
	Name  string
	Score float64
}

// Classifier identifies the speaker of a recording. Retrain rebuilds the
// model from the current registry and training corpus; it blocks until the
// rebuilt model is the one answering Predict calls.
type Classifier interface {
	Predict(ctx context.Context, rec *audio.Recording) (Prediction, error)
	Retrain(ctx context.Context) error
}

// LabelOf returns the voice label for name: its rank in the alphabetically
// sorted registry. Labels are a derived view and must be recomputed from a
// fresh snapshot after every registry change; -1 when name is not present.
func LabelOf(names []string, name string) int {
	for i, candidate := range sortedNames(names) {
		if candidate == name {
			return i
		}
	}
	return -1
}

// NameAt is the inverse of LabelOf: the name holding the given label under
// the same snapshot, or Unknown when the label is out of range.
func NameAt(names []string, label int) string {
	sorted := sortedNames(names)
	if label < 0 || label >= len(sorted) {
		return Unknown
	}
	return sorted[label]
}

func sortedNames(names []string) []string {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)
	return sorted
}
