package keyframe

import (
	"encoding/hex"
	"math/bits"
)

const (
	hashCols = 16
	hashRows = 16
)

// Hash is a 256-bit difference hash of a frame's luminance.
type Hash [32]byte

// DHash computes a difference hash by box-downsampling the frame to a
// 17x16 grid and comparing horizontally adjacent cells.
func DHash(frame Frame) Hash {
	grid := downsample(frame, hashCols+1, hashRows)

	var hash Hash
	bit := 0
	for row := 0; row < hashRows; row++ {
		for col := 0; col < hashCols; col++ {
			if grid[row][col] < grid[row][col+1] {
				hash[bit/8] |= 1 << (7 - bit%8)
			}
			bit++
		}
	}
	return hash
}

// Distance returns the Hamming distance between two hashes.
func (h Hash) Distance(other Hash) int {
	distance := 0
	for i := range h {
		distance += bits.OnesCount8(h[i] ^ other[i])
	}
	return distance
}

// Hex renders the hash for storage.
func (h Hash) Hex() string {
	return hex.EncodeToString(h[:])
}

// ParseHash decodes a hex hash produced by Hex.
func ParseHash(value string) (Hash, bool) {
	var hash Hash
	decoded, err := hex.DecodeString(value)
	if err != nil || len(decoded) != len(hash) {
		return Hash{}, false
	}
	copy(hash[:], decoded)
	return hash, true
}

// downsample box-averages the frame into a cols x rows grid.
func downsample(frame Frame, cols, rows int) [][]float64 {
	grid := make([][]float64, rows)
	for row := range grid {
		grid[row] = make([]float64, cols)
	}

	for row := 0; row < rows; row++ {
		y0 := row * frame.Height / rows
		y1 := (row + 1) * frame.Height / rows
		if y1 <= y0 {
			y1 = y0 + 1
		}
		for col := 0; col < cols; col++ {
			x0 := col * frame.Width / cols
			x1 := (col + 1) * frame.Width / cols
			if x1 <= x0 {
				x1 = x0 + 1
			}

			var sum, count float64
			for y := y0; y < y1 && y < frame.Height; y++ {
				base := y * frame.Width
				for x := x0; x < x1 && x < frame.Width; x++ {
					sum += float64(frame.Pixels[base+x])
					count++
				}
			}
			if count > 0 {
				grid[row][col] = sum / count
			}
		}
	}
	return grid
}
