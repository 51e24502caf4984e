package recorder

import (
	"regexp"
	"strings"

	"github.com/marcelontime/browser-automation-sub001/internal/automation"
)

var (
	emailRe  = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phoneRe  = regexp.MustCompile(`^\+?[0-9][0-9 ()\-]{6,}[0-9]$`)
	dateISORe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dateSlashRe = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	numberRe = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	secretRe = regexp.MustCompile(`secret:([A-Za-z0-9_-]+)`)
)

// classify implements the ordered detector table from spec §4.3. fieldType
// is the resolved element's HTML type attribute, used for the password
// detector; instruction is the originating instruction, used for the
// secret:<name> marker.
func classify(value, fieldType, instruction string) (automation.VariableKind, string) {
	if m := secretRe.FindStringSubmatch(instruction); m != nil {
		return automation.VarSecret, m[1]
	}
	if fieldType == "password" {
		return automation.VarPassword, ""
	}
	if emailRe.MatchString(value) {
		return automation.VarEmail, ""
	}
	if phoneRe.MatchString(value) {
		return automation.VarPhone, ""
	}
	if dateISORe.MatchString(value) || dateSlashRe.MatchString(value) {
		return automation.VarDate, ""
	}
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return automation.VarURL, ""
	}
	if numberRe.MatchString(value) {
		return automation.VarNumber, ""
	}
	return automation.VarText, ""
}
