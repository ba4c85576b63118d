package dispatch

import "math/rand/v2"

// estimateArrivalMinutes is a stand-in for real route planning: a 5 to 20
// minute estimate, matching what the mobile apps expect until a routing
// service is wired in.
func estimateArrivalMinutes() int {
	return rand.IntN(16) + 5
}
