package recorder

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/marcelontime/browser-automation-sub001/internal/automation"
)

var (
	nonAlnumRe  = regexp.MustCompile(`[^A-Za-z0-9]+`)
	camelSplitRe = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// snakeCase derives a variable name from a field label (aria-label,
// placeholder, name, or text), e.g. "User CPF" -> "user_cpf", "loginUrl" ->
// "login_url". Falls back to "value" when label has no usable characters.
func snakeCase(label string) string {
	label = camelSplitRe.ReplaceAllString(label, "${1}_${2}")
	label = nonAlnumRe.ReplaceAllString(label, "_")
	label = strings.Trim(strings.ToLower(label), "_")
	if label == "" {
		return "value"
	}
	if label[0] >= '0' && label[0] <= '9' {
		label = "v_" + label
	}
	return label
}

// uniqueName appends a numeric suffix until name is neither already taken
// nor reserved, matching the reserved-name/duplicate-name rejection the
// Script Schema enforces on save.
func uniqueName(base string, taken map[string]bool) string {
	if !taken[base] && !automation.ReservedNames[base] {
		return base
	}
	for i := 2; ; i++ {
		candidate := base + "_" + strconv.Itoa(i)
		if !taken[candidate] {
			return candidate
		}
	}
}
