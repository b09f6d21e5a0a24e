package language

import (
	"fmt"

	"github.com/google/shlex"
)

// splitStringList accepts either a shell-style string or an already-split
// list of strings and returns the list form, shell-splitting the string
// case the way the original implementation splits executable_opts/args
// with Python's shlex. We reach for the same family of library here:
// google/shlex.
func splitStringList(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if val == "" {
			return nil, nil
		}
		parts, err := shlex.Split(val)
		if err != nil {
			return nil, fmt.Errorf("invalid shell syntax %q: %w", val, err)
		}
		return parts, nil
	case []string:
		return val, nil
	default:
		return nil, fmt.Errorf("expected a string or list of strings, got %T", v)
	}
}

// toStringList normalizes a field that may be a single command string or a
// list of command strings (compile_commands, pre_run_commands, etc.) into
// a list, without shell-splitting: each element is itself a full command
// template later filled in and run as one subprocess invocation.
func toStringList(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if val == "" {
			return nil, nil
		}
		return []string{val}, nil
	case []string:
		return val, nil
	default:
		return nil, fmt.Errorf("expected a string or list of strings, got %T", v)
	}
}
