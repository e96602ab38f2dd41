package bundle

// StandardScaler applies the per-column centering and scaling the models
// were trained with. Parameters come straight from the exported training
// artifact.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Transform scales a feature matrix column-wise. A scale of exactly zero
// degenerates to centering only, so constant training columns cannot
// produce Inf.
func (s *StandardScaler) Transform(rows [][]float64) [][]float64 {
	scaled := make([][]float64, len(rows))

	for i, row := range rows {
		out := make([]float64, len(row))

		for j, v := range row {
			if s.Scale[j] != 0 {
				out[j] = (v - s.Mean[j]) / s.Scale[j]
			} else {
				out[j] = v - s.Mean[j]
			}
		}

		scaled[i] = out
	}

	return scaled
}
