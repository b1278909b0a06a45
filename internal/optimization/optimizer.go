package optimization

// Optimizer defines the interface for optimization algorithms
type Optimizer interface {
	// Optimize runs the optimization process to completion
	Optimize(config OptimizerConfig) (*OptimizationResult, error)

	// GetBestSolution returns the best solution found so far
	GetBestSolution() *Solution

	// GetHistory returns the global best recorded after each iteration
	GetHistory() []Evaluation
}

// OptimizerConfig contains configuration for the optimizer
type OptimizerConfig struct {
	// Objective function to minimize
	Objective ObjectiveFunction

	// Dimensions of the search space
	Dimensions int

	// Number of candidate solutions maintained by the optimizer
	Particles int

	// Number of update steps after initialization
	Iterations int
}

// ObjectiveFunction defines the function to be minimized. It must be defined
// for every position the optimizer can reach.
type ObjectiveFunction func(position []float64) float64

// Solution represents a solution in the optimization space
type Solution struct {
	Parameters []float64
	Value      float64
}

// Clone returns a deep copy of the solution.
func (s *Solution) Clone() *Solution {
	if s == nil {
		return nil
	}
	return &Solution{
		Parameters: append([]float64(nil), s.Parameters...),
		Value:      s.Value,
	}
}

// Evaluation records the global best after a single iteration. Iteration 0
// is the state right after initialization.
type Evaluation struct {
	Iteration int
	Solution  *Solution
}

// OptimizationResult contains the result of an optimization run
type OptimizationResult struct {
	BestSolution *Solution
	History      []Evaluation
	Iterations   int
	// Evaluations is the number of objective calls made.
	Evaluations int
	// Rejected counts objective values that were not finite.
	Rejected int
}
