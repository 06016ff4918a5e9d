package training

import (
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/loanboost/pkg/errors"
)

// Split holds the row indices of each partition.
type Split struct {
	Train      []int
	Validation []int
}

// TrainValidationSplit shuffles n row indices with a PCG source seeded by
// seed and assigns the first ceil(fraction*n) of them to validation. Equal
// arguments always produce the same split.
func TrainValidationSplit(n int, fraction float64, seed int64) (Split, error) {
	if fraction <= 0 || fraction >= 1 {
		return Split{}, errors.NewValidationError("validation_fraction", "must be in (0, 1)", fraction)
	}
	nValid := int(math.Ceil(fraction * float64(n)))
	nTrain := n - nValid
	if nValid < 1 || nTrain < 1 {
		return Split{}, errors.NewValidationError("n_samples",
			"split would leave an empty partition", n)
	}

	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	perm := rng.Perm(n)

	return Split{
		Train:      perm[nValid:],
		Validation: perm[:nValid],
	}, nil
}
