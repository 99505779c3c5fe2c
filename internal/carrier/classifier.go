package carrier

// Tracking number format heuristics. These are shape checks only: a number
// that passes may still belong to another carrier with a similar numbering
// scheme. The precision/recall tradeoff is accepted and disambiguation is
// handled by the Router's explicit adapter priority, not by guessing intent.

const (
	jneMinDigits = 12
	jneMaxDigits = 15
)

// IsJNEFormat reports whether s looks like a JNE airway bill: ASCII digits
// only, length 12 to 15 inclusive. Empty or malformed input returns false,
// never an error.
func IsJNEFormat(s string) bool {
	if len(s) < jneMinDigits || len(s) > jneMaxDigits {
		return false
	}
	return allDigits(s)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
