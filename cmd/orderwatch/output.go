package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// writeStructured renders v as json or yaml. It reports false for any other
// format so the caller can print its own table.
func writeStructured(w io.Writer, format string, v any) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case "yaml", "yml":
		// Go through JSON so field names and extra order fields match the API.
		generic, err := toGeneric(v)
		if err != nil {
			return true, err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return true, fmt.Errorf("encode yaml: %w", err)
		}
		return true, enc.Close()
	case "", "table":
		return false, nil
	default:
		return true, fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

func toGeneric(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal output: %w", err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("unmarshal output: %w", err)
	}
	return generic, nil
}
