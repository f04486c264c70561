//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package dataset

import (
	"fmt"
	mrand "math/rand/v2"
)

// Synthetic specifies a linear dataset y = X*Weights + Intercept +
// noise.
type Synthetic struct {
	Samples   int
	Weights   []float64
	Intercept float64
	Noise     float64
}

// DefaultSynthetic is a small fixed linear dataset.
var DefaultSynthetic = Synthetic{
	Samples:   200,
	Weights:   []float64{3, -2, 0.5, 1.5, -1},
	Intercept: 4,
	Noise:     0.1,
}

// Generate samples the dataset. The features are standard normal
// and the noise is normal with standard deviation s.Noise. The
// returned dataset has no intercept column.
func (s Synthetic) Generate(rnd *mrand.Rand) (*Dataset, error) {
	if s.Samples <= 0 || len(s.Weights) == 0 {
		return nil, fmt.Errorf("dataset: invalid synthetic dataset: %d samples, %d weights",
			s.Samples, len(s.Weights))
	}
	ds := &Dataset{
		X: make([][]float64, s.Samples),
		Y: make([]float64, s.Samples),
	}
	for i := 0; i < s.Samples; i++ {
		row := make([]float64, len(s.Weights))
		y := s.Intercept
		for j, w := range s.Weights {
			row[j] = rnd.NormFloat64()
			y += w * row[j]
		}
		ds.X[i] = row
		ds.Y[i] = y + rnd.NormFloat64()*s.Noise
	}
	return ds, nil
}
