// Package env composes the environment handed to the recorder process.
package env

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

type Var map[string]string

// Env is an immutable set of variables layered on top of the OS environment.
type Env struct {
	vars Var
	base Var // nil means "read os.Environ at merge time"
}

func New() *Env {
	return &Env{vars: make(Var)}
}

// FromOS returns a copy whose base is a snapshot of the current process environment.
func (e *Env) FromOS() *Env {
	base := make(Var)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			base[k] = v
		}
	}
	return &Env{vars: e.copyVars(), base: base}
}

// WithSet returns a copy with K=V set.
func (e *Env) WithSet(k, v string) *Env {
	vars := e.copyVars()
	if k != "" {
		vars[k] = v
	}
	return &Env{vars: vars, base: e.base}
}

// WithPairs returns a copy with every "K=V" entry applied in order.
// Entries without '=' or with an empty key are skipped.
func (e *Env) WithPairs(kvs []string) *Env {
	vars := e.copyVars()
	for _, kv := range kvs {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			vars[k] = v
		}
	}
	return &Env{vars: vars, base: e.base}
}

// WithFiles returns a copy with the variables of each dotenv file applied in order.
// Later files override earlier ones.
func (e *Env) WithFiles(paths ...string) (*Env, error) {
	vars := e.copyVars()
	for _, p := range paths {
		m, err := godotenv.Read(p)
		if err != nil {
			return nil, fmt.Errorf("read env file %s: %w", p, err)
		}
		for k, v := range m {
			vars[k] = v
		}
	}
	return &Env{vars: vars, base: e.base}, nil
}

// Merge composes the final environment list:
// base (OS env) < variables set on e < perProc "K=V" overrides.
// ${VAR} references are expanded once against the composed map.
// The result is sorted by key.
func (e *Env) Merge(perProc []string) []string {
	base := e.base
	if base == nil {
		base = e.FromOS().base
	}
	m := make(Var, len(base)+len(e.vars))
	for k, v := range base {
		m[k] = v
	}
	for k, v := range e.vars {
		m[k] = v
	}
	for _, kv := range perProc {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			m[k] = v
		}
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+expand(m[k], m))
	}
	return out
}

func (e *Env) copyVars() Var {
	vars := make(Var, len(e.vars))
	for k, v := range e.vars {
		vars[k] = v
	}
	return vars
}

// expand replaces ${VAR} references found in m; unknown references are kept verbatim.
func expand(s string, m Var) string {
	var b strings.Builder
	for {
		i := strings.Index(s, "${")
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		j := strings.IndexByte(s[i+2:], '}')
		if j < 0 {
			b.WriteString(s)
			return b.String()
		}
		end := i + 2 + j
		b.WriteString(s[:i])
		if v, ok := m[s[i+2:end]]; ok {
			b.WriteString(v)
		} else {
			b.WriteString(s[i : end+1])
		}
		s = s[end+1:]
	}
}
