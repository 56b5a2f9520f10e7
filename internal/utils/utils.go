package utils

// Clamp restricts input to the closed range [minimum, maximum].
func Clamp(input, minimum, maximum int) int {
	switch {
	case input < minimum:
		return minimum
	case input > maximum:
		return maximum
	default:
		return input
	}
}
