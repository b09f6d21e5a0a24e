package chunk

import (
	"fmt"
	"sort"
	"strings"
)

// LayoutOptions is the `{first_number, line_numbers, rewrap_lines,
// rewrap_width, expand_tabs, tab_size}` group, optionally scoped to one of
// markup, copied_markup, code, stdout, stderr via a key prefix.
type LayoutOptions struct {
	FirstNumber  int
	LineNumbers  bool
	RewrapLines  bool
	RewrapWidth  int
	ExpandTabs   bool
	TabSize      int
}

const (
	layoutScopeMarkup       = "markup"
	layoutScopeCopiedMarkup = "copied_markup"
	layoutScopeCode         = "code"
	layoutScopeStdout       = "stdout"
	layoutScopeStderr       = "stderr"
)

var layoutScopes = []string{layoutScopeMarkup, layoutScopeCopiedMarkup, layoutScopeCode, layoutScopeStdout, layoutScopeStderr}

// Options is the validated form of a chunk's raw attribute map. Fields left
// at their zero value were never set by the author; Complete is a pointer
// because its default depends on the command and the inline flag, and "not
// set" is distinct from "set false".
type Options struct {
	Complete        *bool
	Copy            string
	Example         bool
	Hide            string
	HideMarkupKeys  []string
	Include         *Include
	Lang            string
	Name            string
	OutsideMain     bool
	Session         string
	Source          string
	ShowRaw         string
	Show            []ShowEntry

	Layout map[string]LayoutOptions

	Executable     string
	ExecutableOpts string
	Args           string
	JupyterKernel  string
	JupyterTimeout int
	Save           bool
	SaveAs         string
	LiveOutput     bool

	// IsExpr is derived, not parsed directly: true for command=expr, and
	// inheritable via copy for paste/code (see copy_code in the copy
	// resolver).
	IsExpr bool
}

// validator receives the raw value for a recognised key and applies it to
// opts, or returns an error describing why the value is unacceptable.
type validator func(opts *Options, raw any) error

// validatorTable routes each accepted base/first-chunk-only key to its
// validator. Layout keys (optionally prefixed by a scope) are handled
// separately by parseLayoutKey since their key set is generated, not
// enumerable here.
var validatorTable = map[string]validator{
	"complete": func(o *Options, raw any) error {
		b, err := asBool(raw)
		if err != nil {
			return err
		}
		o.Complete = &b
		return nil
	},
	"copy": func(o *Options, raw any) error {
		s, err := asString(raw)
		if err != nil {
			return err
		}
		o.Copy = s
		return nil
	},
	"example": func(o *Options, raw any) error {
		b, err := asBool(raw)
		if err != nil {
			return err
		}
		o.Example = b
		return nil
	},
	"hide": func(o *Options, raw any) error {
		s, err := asString(raw)
		if err != nil {
			return err
		}
		o.Hide = s
		return nil
	},
	"hide_markup_keys": func(o *Options, raw any) error {
		s, err := asString(raw)
		if err != nil {
			return err
		}
		o.HideMarkupKeys = strings.Split(s, "+")
		return nil
	},
	"include": func(o *Options, raw any) error {
		m, err := asMap(raw)
		if err != nil {
			return err
		}
		inc, err := ParseInclude(m)
		if err != nil {
			return err
		}
		o.Include = inc
		return nil
	},
	"lang": func(o *Options, raw any) error {
		s, err := asString(raw)
		if err != nil {
			return err
		}
		o.Lang = s
		return nil
	},
	"name": func(o *Options, raw any) error {
		s, err := asString(raw)
		if err != nil {
			return err
		}
		o.Name = s
		return nil
	},
	"outside_main": func(o *Options, raw any) error {
		b, err := asBool(raw)
		if err != nil {
			return err
		}
		o.OutsideMain = b
		return nil
	},
	"session": func(o *Options, raw any) error {
		s, err := asString(raw)
		if err != nil {
			return err
		}
		o.Session = s
		return nil
	},
	"source": func(o *Options, raw any) error {
		s, err := asString(raw)
		if err != nil {
			return err
		}
		o.Source = s
		return nil
	},
	"show": func(o *Options, raw any) error {
		s, err := asString(raw)
		if err != nil {
			return err
		}
		o.ShowRaw = s
		return nil
	},
	"executable": func(o *Options, raw any) error {
		s, err := asString(raw)
		if err != nil {
			return err
		}
		o.Executable = s
		return nil
	},
	"executable_opts": func(o *Options, raw any) error {
		s, err := asString(raw)
		if err != nil {
			return err
		}
		o.ExecutableOpts = s
		return nil
	},
	"args": func(o *Options, raw any) error {
		s, err := asString(raw)
		if err != nil {
			return err
		}
		o.Args = s
		return nil
	},
	"jupyter_kernel": func(o *Options, raw any) error {
		s, err := asString(raw)
		if err != nil {
			return err
		}
		o.JupyterKernel = s
		return nil
	},
	"jupyter_timeout": func(o *Options, raw any) error {
		n, err := asPositiveInt(raw)
		if err != nil {
			return err
		}
		o.JupyterTimeout = n
		return nil
	},
	"save": func(o *Options, raw any) error {
		b, err := asBool(raw)
		if err != nil {
			return err
		}
		o.Save = b
		return nil
	},
	"save_as": func(o *Options, raw any) error {
		s, err := asString(raw)
		if err != nil {
			return err
		}
		o.SaveAs = s
		return nil
	},
	"live_output": func(o *Options, raw any) error {
		b, err := asBool(raw)
		if err != nil {
			return err
		}
		o.LiveOutput = b
		return nil
	},
}

// firstChunkOnlyKeys must only appear on a session's first chunk.
var firstChunkOnlyKeys = map[string]bool{
	"executable": true, "executable_opts": true, "args": true,
	"jupyter_kernel": true, "jupyter_timeout": true,
	"save": true, "save_as": true, "live_output": true,
}

// Parse validates a raw option map for a chunk with the given command,
// inline-ness, and whether it will execute (command requires a session).
// It applies defaults, rejects unknown keys as a single SourceError-style
// aggregate, routes each accepted key to its validator, and applies the
// mutual-exclusion rules from the specification's data model.
func Parse(raw map[string]any, cmd Command, inline, execute bool, isFirstChunkOfSession bool) (*Options, error) {
	if !cmd.valid() {
		return nil, fmt.Errorf("unrecognized command %q", cmd)
	}

	opts := &Options{Layout: map[string]LayoutOptions{}}
	var unknown []string

	for key, v := range raw {
		if scope, base, ok := splitLayoutKey(key); ok {
			if err := applyLayoutKey(opts, scope, base, v); err != nil {
				return nil, fmt.Errorf("option %q: %w", key, err)
			}
			continue
		}
		if firstChunkOnlyKeys[key] && !isFirstChunkOfSession {
			return nil, fmt.Errorf("option %q is only valid on a session's first chunk", key)
		}
		vfn, ok := validatorTable[key]
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		if err := vfn(opts, v); err != nil {
			return nil, fmt.Errorf("option %q: %w", key, err)
		}
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown keywords: %s", strings.Join(unknown, ", "))
	}

	opts.applyDefaults(cmd, inline, execute)

	if err := opts.validateMutualExclusion(cmd); err != nil {
		return nil, err
	}

	show, err := ParseShow(opts.ShowRaw, cmd, inline)
	if err != nil {
		return nil, err
	}
	opts.Show = show
	if opts.Hide != "" {
		opts.Show = ApplyHide(opts.Show, opts.Hide)
	}

	return opts, nil
}

func (o *Options) applyDefaults(cmd Command, inline, execute bool) {
	if o.Complete == nil {
		complete := !inline || cmd == CommandExpr
		o.Complete = &complete
	}
	if cmd == CommandExpr {
		o.IsExpr = true
	}
}

func (o *Options) validateMutualExclusion(cmd Command) error {
	if o.Copy != "" && o.Include != nil {
		return fmt.Errorf("copy and include are mutually exclusive")
	}
	if o.OutsideMain && !*o.Complete {
		return fmt.Errorf("outside_main=true requires complete=true")
	}
	if !*o.Complete && cmd == CommandExpr {
		return fmt.Errorf("complete=false is incompatible with expr")
	}
	if o.Session != "" && o.Source != "" {
		return fmt.Errorf("session and source are mutually exclusive")
	}
	if o.Copy != "" && o.Name != "" && o.Copy == o.Name {
		return fmt.Errorf("chunk cannot name itself in copy")
	}
	return nil
}

func splitLayoutKey(key string) (scope, base string, ok bool) {
	for _, s := range layoutScopes {
		if strings.HasPrefix(key, s+"_") {
			return s, strings.TrimPrefix(key, s+"_"), true
		}
	}
	if isLayoutBaseKey(key) {
		return "", key, true
	}
	return "", "", false
}

func isLayoutBaseKey(key string) bool {
	switch key {
	case "first_number", "line_numbers", "rewrap_lines", "rewrap_width", "expand_tabs", "tab_size":
		return true
	}
	return false
}

func applyLayoutKey(o *Options, scope, base string, raw any) error {
	lo := o.Layout[scope]
	switch base {
	case "first_number":
		n, err := asPositiveInt(raw)
		if err != nil {
			return err
		}
		lo.FirstNumber = n
	case "line_numbers":
		b, err := asBool(raw)
		if err != nil {
			return err
		}
		lo.LineNumbers = b
	case "rewrap_lines":
		b, err := asBool(raw)
		if err != nil {
			return err
		}
		lo.RewrapLines = b
	case "rewrap_width":
		n, err := asPositiveInt(raw)
		if err != nil {
			return err
		}
		lo.RewrapWidth = n
	case "expand_tabs":
		b, err := asBool(raw)
		if err != nil {
			return err
		}
		lo.ExpandTabs = b
	case "tab_size":
		n, err := asPositiveInt(raw)
		if err != nil {
			return err
		}
		lo.TabSize = n
	default:
		return fmt.Errorf("unrecognized layout key %q", base)
	}
	o.Layout[scope] = lo
	return nil
}

func asBool(raw any) (bool, error) {
	b, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("expected a boolean, got %T", raw)
	}
	return b, nil
}

func asString(raw any) (string, error) {
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("expected a string, got %T", raw)
	}
	return s, nil
}

func asPositiveInt(raw any) (int, error) {
	n, ok := raw.(int)
	if !ok {
		return 0, fmt.Errorf("expected an integer, got %T", raw)
	}
	if n <= 0 {
		return 0, fmt.Errorf("expected a positive integer, got %d", n)
	}
	return n, nil
}

func asMap(raw any) (map[string]any, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a mapping, got %T", raw)
	}
	return m, nil
}
