package security

const maskedSuffix = "XXXX"

// MaskLastFour replaces the last four characters of a personal number, the
// serial digits and checksum, for display and logs.
func MaskLastFour(personalNumber string) string {
	runes := []rune(personalNumber)
	if len(runes) <= len(maskedSuffix) {
		return maskedSuffix
	}
	return string(runes[:len(runes)-len(maskedSuffix)]) + maskedSuffix
}
