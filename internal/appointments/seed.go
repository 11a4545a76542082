package appointments

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed seed.json
var seedData []byte

// Seed returns the bundled demo dataset. The manager falls back to it when
// the durable store holds no snapshot or a corrupt one.
func Seed() ([]Appointment, error) {
	var appts []Appointment
	if err := json.Unmarshal(seedData, &appts); err != nil {
		return nil, fmt.Errorf("appointments: decode seed dataset: %w", err)
	}
	return appts, nil
}
