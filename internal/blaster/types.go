package blaster

import (
	"time"
)

const (
	DefaultBaseURL    = "http://localhost:4123/keys"
	DefaultWorkers    = 50
	DefaultIterations = 100
)

type Config struct {
	BaseURL    string
	Workers    int
	Iterations int

	// Timeout applies per request; 0 leaves the client without one.
	Timeout time.Duration
}
