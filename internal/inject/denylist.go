package inject

import "strings"

// DefaultDenyList is the conservative family-B default of spec §9's second
// resolved open question: never inject into system-owned process images.
var DefaultDenyList = []string{
	`C:\Windows`,
	`C:\Program Files\WindowsApps`,
}

// Denied reports whether imagePath falls under any deny-list prefix. The
// comparison is case-insensitive, matching Windows path semantics.
func Denied(imagePath string, denyList []string) bool {
	lower := strings.ToLower(imagePath)
	for _, prefix := range denyList {
		if prefix == "" {
			continue
		}
		if strings.HasPrefix(lower, strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}
