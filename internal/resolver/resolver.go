// Package resolver implements C8: substitution of ${NAME}/{{NAME}}/{NAME}
// tokens in an Action's URL and value fields against a name→value map.
package resolver

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/marcelontime/browser-automation-sub001/internal/automation"
	"github.com/marcelontime/browser-automation-sub001/internal/errkind"
)

// tokenRe matches any of the three accepted token spellings, capturing the
// bare name in whichever group matched.
var tokenRe = regexp.MustCompile(`\$\{([A-Za-z][A-Za-z0-9_-]*)\}|\{\{([A-Za-z][A-Za-z0-9_-]*)\}\}|\{([A-Za-z][A-Za-z0-9_-]*)\}`)

// Resolve substitutes every token in a's URL and Value fields using values,
// URL-encoding substitutions only inside the URL field. Returns
// MissingVariable listing every unresolved name if any token has no entry
// in values.
func Resolve(a automation.Action, values map[string]string) (automation.Action, error) {
	out := a.Clone()
	var missing []string
	seen := make(map[string]bool)

	out.URL = substitute(a.URL, values, true, &missing, seen)
	out.Value = substitute(a.Value, values, false, &missing, seen)
	out.Option = substitute(a.Option, values, false, &missing, seen)

	if len(missing) > 0 {
		sort.Strings(missing)
		return automation.Action{}, errkind.New(errkind.MissingVariable, "missing variables: "+strings.Join(missing, ", ")).
			WithContext("missing", missing)
	}
	return out, nil
}

func substitute(s string, values map[string]string, urlEncode bool, missing *[]string, seen map[string]bool) string {
	if s == "" {
		return s
	}
	return tokenRe.ReplaceAllStringFunc(s, func(match string) string {
		name := tokenName(match)
		v, ok := values[name]
		if !ok {
			if !seen[name] {
				seen[name] = true
				*missing = append(*missing, name)
			}
			return match
		}
		if urlEncode {
			return url.QueryEscape(v)
		}
		return v
	})
}

func tokenName(match string) string {
	sub := tokenRe.FindStringSubmatch(match)
	for _, g := range sub[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}
