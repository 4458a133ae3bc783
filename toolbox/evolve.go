package toolbox

import (
	"fmt"
	"log"
)

// EvolveConfig controls Evolve.
type EvolveConfig struct {
	Generations int
	Population  int     // mutants per generation
	Scale       float64 // mutation scale passed to Network.Mutate

	// Logger receives one line per improving generation.  nil means
	// log.Default().
	Logger *log.Logger
}

func (c *EvolveConfig) Validate() error {
	if c.Generations <= 0 {
		return fmt.Errorf("generations must be positive, got %d", c.Generations)
	}
	if c.Population <= 0 {
		return fmt.Errorf("population must be positive, got %d", c.Population)
	}
	if c.Scale < 0 {
		return fmt.Errorf("mutation scale must not be negative, got %v", c.Scale)
	}
	return nil
}

// Evolve searches for a better network without gradients.  Each generation
// mutates the current best network Population times and keeps the mutant
// with the lowest MeanSquaredError over data, if it beats the parent.
//
// net itself is never modified.  The best network found and its loss are
// returned.
func Evolve(net *Network, data []Datapoint, cfg EvolveConfig) (*Network, float64, error) {
	if err := cfg.Validate(); err != nil {
		return nil, 0, fmt.Errorf("while validating evolve config: %w", err)
	}
	if len(data) == 0 {
		return nil, 0, fmt.Errorf("no evaluation data")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	best := net.Clone()
	bestLoss := MeanSquaredError(best, data)

	for gen := 0; gen < cfg.Generations; gen++ {
		parent := best
		for p := 0; p < cfg.Population; p++ {
			mutant := parent.Mutate(cfg.Scale)
			if loss := MeanSquaredError(mutant, data); loss < bestLoss {
				best, bestLoss = mutant, loss
			}
		}
		if best != parent {
			logger.Printf("generation %d/%d mse=%v", gen+1, cfg.Generations, bestLoss)
		}
	}

	return best, bestLoss, nil
}
