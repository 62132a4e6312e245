package preset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cwbudde/algo-rt60/analysis"
)

var builtins = map[string]func() *analysis.Params{
	"default": analysis.NewDefaultParams,
	// Wider spread for rooms where the low band matters most.
	"wide": func() *analysis.Params {
		p := analysis.NewDefaultParams()
		p.LowCutoffHz = 20
		p.MidCutoffHz = 1000
		p.HighCutoffHz = 7000
		return p
	},
}

// Builtin returns a fresh copy of a named preset.
func Builtin(name string) (*analysis.Params, error) {
	mk, ok := builtins[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown builtin preset %q (have %s)", name, strings.Join(Names(), ", "))
	}
	return mk(), nil
}

// Names lists the built-in presets in sorted order.
func Names() []string {
	out := make([]string, 0, len(builtins))
	for k := range builtins {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Resolve loads the preset file at path when it is set and otherwise the
// named builtin ("default" when empty).
func Resolve(path, builtin string) (*analysis.Params, error) {
	if strings.TrimSpace(path) != "" {
		return LoadJSON(path)
	}
	if strings.TrimSpace(builtin) == "" {
		builtin = "default"
	}
	return Builtin(builtin)
}
