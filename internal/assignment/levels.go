package assignment

import "fmt"

// LevelConfig describes one of the five difficulty levels as a percentage
// weight over the cognitive categories. Instances are immutable; Weights
// always sums to 100.
type LevelConfig struct {
	Number  int              `json:"level"`
	Name    string           `json:"name"`
	Weights map[Category]int `json:"weights"`
}

var levelTable = []LevelConfig{
	{Number: 1, Name: "Basic", Weights: map[Category]int{
		Remember: 40, Understand: 20, Apply: 15, Analyse: 15, Evaluate: 10,
	}},
	{Number: 2, Name: "Intermediate", Weights: map[Category]int{
		Remember: 30, Understand: 30, Apply: 15, Analyse: 15, Evaluate: 10,
	}},
	{Number: 3, Name: "Advanced", Weights: map[Category]int{
		Remember: 20, Understand: 20, Apply: 20, Analyse: 20, Evaluate: 20,
	}},
	{Number: 4, Name: "Expert", Weights: map[Category]int{
		Remember: 15, Understand: 15, Apply: 25, Analyse: 25, Evaluate: 20,
	}},
	{Number: 5, Name: "Master", Weights: map[Category]int{
		Remember: 10, Understand: 10, Apply: 30, Analyse: 25, Evaluate: 25,
	}},
}

// LevelFor returns the configuration for level n (1..5).
func LevelFor(n int) (LevelConfig, error) {
	if n < 1 || n > len(levelTable) {
		return LevelConfig{}, fmt.Errorf("%w: level %d", ErrInvalidLevel, n)
	}
	cfg := levelTable[n-1]
	// Hand out a copy so callers cannot mutate the table.
	weights := make(map[Category]int, len(cfg.Weights))
	for c, w := range cfg.Weights {
		weights[c] = w
	}
	cfg.Weights = weights
	return cfg, nil
}

// Levels returns all five level configurations in order.
func Levels() []LevelConfig {
	out := make([]LevelConfig, 0, len(levelTable))
	for i := range levelTable {
		cfg, _ := LevelFor(i + 1)
		out = append(out, cfg)
	}
	return out
}
