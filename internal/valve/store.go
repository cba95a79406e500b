package valve

import "context"

// Store persists the full valve sequence.
//
// Save always receives the complete, ordered list and replaces whatever was
// stored before. Load returns the list in stored order.
type Store interface {
	Load(ctx context.Context) ([]Valve, error)
	Save(ctx context.Context, valves []Valve) error
}
