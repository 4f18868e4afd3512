package ranking

import "math"

// NormalizeVec scales the vector to unit length in place and returns it.
// A zero vector is returned unchanged.
func NormalizeVec(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] /= norm
	}
	return v
}

// Cosine returns the cosine similarity of two unit vectors, which is their
// dot product. Mismatched lengths or empty vectors score 0.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

// MaxSimilarity compares the job vector against every resume chunk vector
// and returns the best score with the index of the winning chunk. An empty
// chunk set yields (0, -1).
func MaxSimilarity(jobVec []float64, chunkVecs [][]float64) (float64, int) {
	best, bestIdx := 0.0, -1
	for i, chunk := range chunkVecs {
		if score := Cosine(jobVec, chunk); bestIdx == -1 || score > best {
			best, bestIdx = score, i
		}
	}
	return best, bestIdx
}
