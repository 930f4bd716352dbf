package models

// Strategy is the algorithm a task uses to move data to the destination.
type Strategy string

// Supported strategies.
const (
	StrategyFull        Strategy = "full"
	StrategyArchive     Strategy = "archive"
	StrategyIncremental Strategy = "incremental"
)

// Valid reports whether s is one of the supported strategies.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyFull, StrategyArchive, StrategyIncremental:
		return true
	}
	return false
}

// TaskDescriptor is one configured backup unit.
type TaskDescriptor struct {
	Name     string // defaults to the base name of Source
	Source   string
	Strategy Strategy
	Run      bool
}
