package config

import (
	"bytes"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/disgraph/pkg/errors"
)

// Set returns a copy of c with the dotted key ("view.zoom") set to value.
// The value is read as a TOML literal; anything that doesn't parse as one
// is taken as a plain string. The result is validated.
func Set(c Config, key, value string) (Config, error) {
	section, name, ok := strings.Cut(key, ".")
	if !ok || section == "" || name == "" {
		return c, errors.New(errors.ErrCodeInvalidInput, "config key %q must look like section.name", key)
	}

	tree, err := toTree(c)
	if err != nil {
		return c, err
	}
	table, ok := tree[section].(map[string]any)
	if !ok {
		return c, errors.New(errors.ErrCodeInvalidInput, "unknown config section %q", section)
	}
	old, ok := table[name]
	if !ok {
		return c, errors.New(errors.ErrCodeInvalidInput, "unknown config key %q", key)
	}
	table[name] = coerce(old, parseValue(value))

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(tree); err != nil {
		return c, errors.Wrap(errors.ErrCodeInvalidInput, err, "set %s", key)
	}
	return Decode(buf.Bytes())
}

// Get returns the value of a dotted key formatted as TOML.
func Get(c Config, key string) (string, error) {
	section, name, _ := strings.Cut(key, ".")
	tree, err := toTree(c)
	if err != nil {
		return "", err
	}
	table, _ := tree[section].(map[string]any)
	v, ok := table[name]
	if !ok {
		return "", errors.New(errors.ErrCodeInvalidInput, "unknown config key %q", key)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(map[string]any{"v": v}); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "encode %s", key)
	}
	return strings.TrimSpace(strings.TrimPrefix(buf.String(), "v = ")), nil
}

func toTree(c Config) (map[string]any, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode config")
	}
	tree := map[string]any{}
	if _, err := toml.Decode(buf.String(), &tree); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "decode config")
	}
	return tree, nil
}

func parseValue(s string) any {
	var m map[string]any
	if _, err := toml.Decode("v = "+s, &m); err == nil {
		return m["v"]
	}
	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = strings.TrimSpace(p)
		}
		return out
	}
	return s
}

// coerce keeps the type of the existing value where the literal is merely
// written differently (2 for 2.0, "svg" for ["svg"]).
func coerce(old, v any) any {
	switch old.(type) {
	case float64:
		if n, ok := v.(int64); ok {
			return float64(n)
		}
	case []any:
		if _, ok := v.([]any); !ok {
			return []any{v}
		}
	}
	return v
}
