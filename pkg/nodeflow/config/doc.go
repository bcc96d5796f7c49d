/*
Package config provides typed access to node params and configuration maps.

# Overview

Node params are free-form map[string]any values assigned by a flow before each
run. Config wraps such a map and exposes typed accessors that fall back to a
default when a key is missing or holds a value of the wrong type, so lifecycle
code does not need a type assertion per lookup.

	func (c *chunker) Prep(ctx nodeflow.Context, shared *Store) ([][]int, error) {
	    size := ctx.Config().Int("chunk_size", 10)
	    ...
	}

# Coercion

Duration accepts duration strings ("250ms", "1m30s") and plain numbers, which
are read as seconds. This matches how retry waits are expressed in params and
config files. Int accepts float64 values without a fractional part, because
JSON decoding produces float64 for every number.

# Loading

FromFile, FromYAML and FromJSON decode a top-level mapping into a Config.
Nested mappings are reachable through Sub, and lists of mappings (batch
params) through Maps.

	cfg, err := config.FromFile("flow.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	if params, ok := cfg.Sub("params"); ok {
	    flow.SetParams(params.Raw())
	}

# Thread Safety

Config never mutates the wrapped map. Concurrent reads are safe as long as the
caller does not modify the map it passed to New.
*/
package config
