package desktop

// ArcTargets returns the target rotation of n windows laid out along an arc
// centered on the viewer's forward direction.
func ArcTargets(n int, spacing float32) []float32 {
	targets := make([]float32, n)
	start := -spacing * float32(n-1) / 2
	for j := range targets {
		targets[j] = start + float32(j)*spacing
	}
	return targets
}

// Smooth moves cur towards target by the given fraction of the remaining
// distance.
func Smooth(cur, target, factor float32) float32 {
	return cur + (target-cur)*factor
}
