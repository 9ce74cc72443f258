package mot

import "math"

// hungarianAssign solves rectangular minimum-cost assignment with Kuhn-Munkres algorithm
// (Jonker-Volgenant variant with row and column potentials) in O(n³).
//
// Matrix is padded to square with zero-cost dummy cells. Every perfect matching of the padded
// matrix contains exactly min(rows, cols) real cells, so the optimum of padded problem
// is the optimum of rectangular one.
func hungarianAssign(costs [][]float64) []Assignment {
	numRows := len(costs)
	if numRows == 0 {
		return []Assignment{}
	}
	numCols := len(costs[0])
	if numCols == 0 {
		return []Assignment{}
	}
	dim := maxInt(numRows, numCols)
	c := make([][]float64, dim)
	for i := 0; i < dim; i++ {
		c[i] = make([]float64, dim)
		if i < numRows {
			copy(c[i], costs[i])
		}
	}

	const inf = math.MaxFloat64 / 2

	// 1-indexed internally, index 0 is a virtual column
	u := make([]float64, dim+1) // Row potentials
	v := make([]float64, dim+1) // Column potentials
	p := make([]int, dim+1)     // p[j] = row assigned to column j
	way := make([]int, dim+1)   // way[j] = previous column in augmenting path
	minv := make([]float64, dim+1)
	used := make([]bool, dim+1)

	for i := 1; i <= dim; i++ {
		p[0] = i
		j0 := 0
		for j := 1; j <= dim; j++ {
			minv[j] = inf
			used[j] = false
		}
		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1
			for j := 1; j <= dim; j++ {
				if used[j] {
					continue
				}
				cur := c[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			if j1 < 0 {
				break
			}
			for j := 0; j <= dim; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		// Augment along the path
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	pairs := make([]Assignment, 0, minInt(numRows, numCols))
	for j := 1; j <= dim; j++ {
		row := p[j] - 1
		col := j - 1
		if row >= 0 && row < numRows && col < numCols {
			pairs = append(pairs, Assignment{TrackIndex: row, DetectionIndex: col})
		}
	}
	return pairs
}
