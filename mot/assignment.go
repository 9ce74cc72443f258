package mot

import (
	"fmt"
	"sort"

	"github.com/arthurkushman/go-hungarian"
)

// MatchingAlgorithm is for algorithm type for matching detections to tracks
type MatchingAlgorithm uint16

const (
	// MatchingAlgorithmHungarian uses Kuhn-Munkres algorithm with potentials for optimal assignment
	MatchingAlgorithmHungarian MatchingAlgorithm = iota
	// MatchingAlgorithmSolveMax uses github.com/arthurkushman/go-hungarian. Its result is checked
	// against MatchingAlgorithmHungarian and replaced when it costs more, so the assignment is optimal
	MatchingAlgorithmSolveMax
	// MatchingAlgorithmGreedy takes cheapest pairs first. Faster, but potentially suboptimal
	MatchingAlgorithmGreedy
)

func (algorithm MatchingAlgorithm) String() string {
	switch algorithm {
	case MatchingAlgorithmHungarian:
		return "hungarian"
	case MatchingAlgorithmSolveMax:
		return "solvemax"
	case MatchingAlgorithmGreedy:
		return "greedy"
	default:
		return fmt.Sprintf("MatchingAlgorithm(%d)", uint16(algorithm))
	}
}

// Optimal reports whether algorithm always yields minimum total cost
func (algorithm MatchingAlgorithm) Optimal() bool {
	return algorithm != MatchingAlgorithmGreedy
}

// ParseMatchingAlgorithm converts textual name into MatchingAlgorithm
func ParseMatchingAlgorithm(name string) (MatchingAlgorithm, error) {
	switch name {
	case "hungarian", "":
		return MatchingAlgorithmHungarian, nil
	case "solvemax":
		return MatchingAlgorithmSolveMax, nil
	case "greedy":
		return MatchingAlgorithmGreedy, nil
	default:
		return 0, fmt.Errorf("unknown matching algorithm: %q", name)
	}
}

// Assignment pairs track index with detection index for the current frame
type Assignment struct {
	TrackIndex     int
	DetectionIndex int
}

// AssignmentResult holds pairs plus unmatched track and detection indices (ascending).
// Indices refer to the snapshot of tracks and detections of a single frame.
type AssignmentResult struct {
	Pairs               []Assignment
	UnmatchedTracks     []int
	UnmatchedDetections []int
	// Total cost of pairs
	Cost float64
}

// Assigner pairs predicted track positions with detections minimizing total Euclidean distance
type Assigner struct {
	// Algorithm to use for matching
	algorithm MatchingAlgorithm
	// Pairs further apart than this distance are dissolved after solving. Zero disables gate
	maxDistance float64
}

// NewAssignerDefault creates assigner with Hungarian algorithm and no distance gate
func NewAssignerDefault() *Assigner {
	return &Assigner{
		algorithm:   MatchingAlgorithmHungarian,
		maxDistance: 0,
	}
}

// NewAssigner creates new instance of Assigner
func NewAssigner(algorithm MatchingAlgorithm, maxDistance float64) *Assigner {
	return &Assigner{
		algorithm:   algorithm,
		maxDistance: maxDistance,
	}
}

// CostMatrix returns tracks × detections matrix of Euclidean distances
func CostMatrix(predicted []Point, detections []Point) [][]float64 {
	costs := make([][]float64, len(predicted))
	for i, trackPos := range predicted {
		row := make([]float64, len(detections))
		for j, detection := range detections {
			row[j] = euclideanDistance(trackPos, detection)
		}
		costs[i] = row
	}
	return costs
}

// Assign solves assignment between predicted positions and detections
func (assigner *Assigner) Assign(predicted []Point, detections []Point) AssignmentResult {
	numTracks := len(predicted)
	numDetections := len(detections)
	if numTracks == 0 || numDetections == 0 {
		// There are no tracks or no detections: everything is unmatched
		return AssignmentResult{
			Pairs:               []Assignment{},
			UnmatchedTracks:     indexRange(numTracks),
			UnmatchedDetections: indexRange(numDetections),
		}
	}
	costs := CostMatrix(predicted, detections)
	var pairs []Assignment
	switch assigner.algorithm {
	case MatchingAlgorithmSolveMax:
		pairs = solveMaxAssign(costs)
	case MatchingAlgorithmGreedy:
		pairs = greedyAssign(costs)
	default:
		pairs = hungarianAssign(costs)
	}
	if assigner.maxDistance > 0 {
		gated := pairs[:0]
		for _, pair := range pairs {
			if costs[pair.TrackIndex][pair.DetectionIndex] <= assigner.maxDistance {
				gated = append(gated, pair)
			}
		}
		pairs = gated
	}
	return buildResult(pairs, costs, numTracks, numDetections)
}

func buildResult(pairs []Assignment, costs [][]float64, numTracks, numDetections int) AssignmentResult {
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].TrackIndex < pairs[j].TrackIndex
	})
	matchedTracks := make([]bool, numTracks)
	matchedDetections := make([]bool, numDetections)
	result := AssignmentResult{
		Pairs:               pairs,
		UnmatchedTracks:     make([]int, 0),
		UnmatchedDetections: make([]int, 0),
	}
	for _, pair := range pairs {
		matchedTracks[pair.TrackIndex] = true
		matchedDetections[pair.DetectionIndex] = true
		result.Cost += costs[pair.TrackIndex][pair.DetectionIndex]
	}
	for i, matched := range matchedTracks {
		if !matched {
			result.UnmatchedTracks = append(result.UnmatchedTracks, i)
		}
	}
	for j, matched := range matchedDetections {
		if !matched {
			result.UnmatchedDetections = append(result.UnmatchedDetections, j)
		}
	}
	return result
}

// costTolerance absorbs float rounding when total costs of two solvers are compared
const costTolerance = 1e-9

func totalCost(pairs []Assignment, costs [][]float64) float64 {
	total := 0.0
	for _, pair := range pairs {
		total += costs[pair.TrackIndex][pair.DetectionIndex]
	}
	return total
}

// solveMaxAssign runs go-hungarian and falls back to hungarianAssign when
// the library returns an incomplete or more expensive assignment
func solveMaxAssign(costs [][]float64) []Assignment {
	pairs := solveMaxPairs(costs)
	reference := hungarianAssign(costs)
	if len(pairs) != len(reference) || totalCost(pairs, costs) > totalCost(reference, costs)+costTolerance {
		return reference
	}
	return pairs
}

// solveMaxPairs turns minimization into maximization of (bias - cost) and pads matrix
// to square with zeros, so exactly min(rows, cols) real pairs are selected.
func solveMaxPairs(costs [][]float64) []Assignment {
	numTracks := len(costs)
	numDetections := len(costs[0])
	bias := 0.0
	for _, row := range costs {
		for _, c := range row {
			bias = maxFloat64(bias, c)
		}
	}
	bias += 1.0

	paddedSize := maxInt(numTracks, numDetections)
	paddedMatrix := make([][]float64, paddedSize)
	for i := 0; i < paddedSize; i++ {
		paddedMatrix[i] = make([]float64, paddedSize)
	}
	for i := 0; i < numTracks; i++ {
		for j := 0; j < numDetections; j++ {
			paddedMatrix[i][j] = bias - costs[i][j]
		}
	}

	assignmentsMap := hungarian.SolveMax(paddedMatrix)
	pairs := make([]Assignment, 0, minInt(numTracks, numDetections))
	for trackIndex, rowMap := range assignmentsMap {
		for detectionIndex := range rowMap {
			// Skip dummy rows and columns
			if trackIndex < numTracks && detectionIndex < numDetections {
				pairs = append(pairs, Assignment{TrackIndex: trackIndex, DetectionIndex: detectionIndex})
			}
		}
	}
	return pairs
}

// greedyAssign repeatedly takes the cheapest pair whose track and detection are both free
func greedyAssign(costs [][]float64) []Assignment {
	numTracks := len(costs)
	numDetections := len(costs[0])
	queue := make(distanceHeap, 0, numTracks*numDetections)
	for i := 0; i < numTracks; i++ {
		for j := 0; j < numDetections; j++ {
			queue.Push(&candidatePair{trackIndex: i, detectionIndex: j, distance: costs[i][j]})
		}
	}
	// We need to prevent double use of tracks and detections
	reservedTracks := make([]bool, numTracks)
	reservedDetections := make([]bool, numDetections)
	pairs := make([]Assignment, 0, minInt(numTracks, numDetections))
	for queue.Len() > 0 && len(pairs) < cap(pairs) {
		candidate := queue.Pop()
		if reservedTracks[candidate.trackIndex] || reservedDetections[candidate.detectionIndex] {
			continue
		}
		reservedTracks[candidate.trackIndex] = true
		reservedDetections[candidate.detectionIndex] = true
		pairs = append(pairs, Assignment{TrackIndex: candidate.trackIndex, DetectionIndex: candidate.detectionIndex})
	}
	return pairs
}

func indexRange(n int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return indices
}
