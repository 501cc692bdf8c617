package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// ParseFilters turns "key=value" pairs into a task filter map. Blank
// entries are skipped; a later key replaces an earlier one.
func ParseFilters(pairs []string) (map[string]string, error) {
	out := map[string]string{}
	for _, p := range pairs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, eris.Errorf("model: filter %q must be key=value", p)
		}
		out[k] = strings.TrimSpace(v)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
