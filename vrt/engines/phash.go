package engines

import (
	"image"
	"math"
	"math/bits"

	"go.vrtcore.dev/vrt/types"
)

// phashEngine computes the classic 64-bit DCT perceptual hash (downscale to
// 32x32, take the top-left 8x8 of the 2D DCT excluding the DC term, hash
// against the median), then reports similarity as 1 - hamming_distance/64,
// per spec.md §4.2. Unlike the other engines, pHash never produces a diff
// image: a single bit distance has no natural pixel-space visualization.
type phashEngine struct{}

// PHash is the perceptual-hash comparison engine.
var PHash Engine = phashEngine{}

const (
	phashSize    = 32
	phashHashLen = 8
)

func (phashEngine) Name() types.EngineName { return types.EnginePHash }

func (e phashEngine) Compare(baseline, test *image.NRGBA, diffOutPrefix string, cfg Config) types.EngineResult {
	h1 := computePHash(baseline)
	h2 := computePHash(test)
	hd := bits.OnesCount64(h1 ^ h2)
	similarity := 1 - float64(hd)/64

	return types.EngineResult{
		Engine:      types.EnginePHash,
		Similarity:  similarity,
		DiffPercent: (1 - similarity) * 100,
	}
}

// Hash64 exposes the raw 64-bit hash for callers (the comparator) that
// store it directly on ComparisonResult.PHash.
func Hash64(img *image.NRGBA) uint64 {
	return computePHash(img)
}

func computePHash(img *image.NRGBA) uint64 {
	small := nearestResizeGray(img, phashSize, phashSize)
	gray := toGray(small)

	dct := dct2D(gray)

	// Top-left phashHashLen x phashHashLen block, excluding the DC term
	// at (0,0), is the low-frequency signature.
	vals := make([]float64, 0, phashHashLen*phashHashLen-1)
	for y := 0; y < phashHashLen; y++ {
		for x := 0; x < phashHashLen; x++ {
			if x == 0 && y == 0 {
				continue
			}
			vals = append(vals, dct[y][x])
		}
	}

	median := medianOf(vals)

	var hash uint64
	bit := uint(0)
	for y := 0; y < phashHashLen; y++ {
		for x := 0; x < phashHashLen; x++ {
			if x == 0 && y == 0 {
				continue
			}
			if dct[y][x] > median {
				hash |= 1 << bit
			}
			bit++
		}
	}
	return hash
}

func medianOf(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	insertionSort(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func insertionSort(vals []float64) {
	for i := 1; i < len(vals); i++ {
		v := vals[i]
		j := i - 1
		for j >= 0 && vals[j] > v {
			vals[j+1] = vals[j]
			j--
		}
		vals[j+1] = v
	}
}

// dct2D computes the 2D type-II DCT of an NxN grid via separable 1D DCTs.
func dct2D(grid [][]float64) [][]float64 {
	n := len(grid)
	tmp := make([][]float64, n)
	for y := 0; y < n; y++ {
		tmp[y] = dct1D(grid[y])
	}
	out := make([][]float64, n)
	for y := 0; y < n; y++ {
		out[y] = make([]float64, n)
	}
	col := make([]float64, n)
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			col[y] = tmp[y][x]
		}
		transformed := dct1D(col)
		for y := 0; y < n; y++ {
			out[y][x] = transformed[y]
		}
	}
	return out
}

func dct1D(vals []float64) []float64 {
	n := len(vals)
	out := make([]float64, n)
	for k := 0; k < n; k++ {
		var sum float64
		for i, v := range vals {
			sum += v * math.Cos(math.Pi/float64(n)*(float64(i)+0.5)*float64(k))
		}
		c := 1.0
		if k == 0 {
			c = 1 / math.Sqrt2
		}
		out[k] = sum * c * math.Sqrt(2.0/float64(n))
	}
	return out
}
