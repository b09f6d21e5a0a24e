// Package subexec implements the subprocess executor: command staging
// (compile/pre_run/run/post_run), the delimiter-synchronised byte-stream
// parser, cross-stream rendezvous, and the stderr/compile rewriter.
package subexec

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/shlex"
	"github.com/google/uuid"

	"github.com/mvp-joe/codebraid/internal/collection"
	"github.com/mvp-joe/codebraid/internal/language"
)

// Stage is one of the four execution stages a language definition's
// command lists configure.
type Stage string

const (
	StageCompile Stage = "compile"
	StagePreRun  Stage = "pre_run"
	StageRun     Stage = "run"
	StagePostRun Stage = "post_run"
)

// fields is the substitution dict the specification names for stage
// command templates: {executable, extension, run_delim_start,
// run_delim_hash, source, source_name, source_dir,
// source_without_extension, run_script, buffering, executable_opts, args}.
// executable_opts and args expand inline (as separate argv words); every
// other field is a plain string substitution.
type fields struct {
	Executable              string
	Extension               string
	RunDelimStart           string
	RunDelimHash            string
	Source                  string
	SourceName              string
	SourceDir               string
	SourceWithoutExtension  string
	RunScript               string
	Buffering               string
	ExecutableOpts          []string
	Args                    []string
}

// Plan is a filled, ready-to-exec command: argv plus the encoding the
// stage should use.
type Plan struct {
	Argv     []string
	Encoding string
}

// SourcePaths are the on-disk paths a non-interpreter-script stage writes
// its generated program to, named `source_<hash_root>.<ext>` per the
// specification.
type SourcePaths struct {
	Dir                    string
	Path                   string
	PathWithoutExtension   string
}

// NewSourcePaths computes the temp source file location for a session.
func NewSourcePaths(tempDir string, def *language.Definition, hashRoot string) SourcePaths {
	name := fmt.Sprintf("source_%s.%s", hashRoot, def.Extension)
	path := filepath.Join(tempDir, name)
	return SourcePaths{
		Dir:                  tempDir,
		Path:                 path,
		PathWithoutExtension: strings.TrimSuffix(path, "."+def.Extension),
	}
}

// BuildStagePlans fills every command template configured for stage and
// returns one Plan per command (compile/pre_run/post_run may run more
// than one command in sequence).
func BuildStagePlans(def *language.Definition, stage Stage, sess *collection.Session, paths SourcePaths, runDelimHash string) ([]Plan, string, error) {
	var templates []string
	var encoding string
	switch stage {
	case StageCompile:
		templates, encoding = def.CompileCommands, def.CompileEncoding
	case StagePreRun:
		templates, encoding = def.PreRunCommands, def.PreRunEncoding
	case StageRun:
		templates, encoding = []string{def.RunCommand}, def.RunEncoding
	case StagePostRun:
		templates, encoding = def.PostRunCommands, def.PostRunEncoding
	default:
		return nil, "", fmt.Errorf("unrecognized stage %q", stage)
	}

	execOpts, err := shlex.Split(sess.ExecutableOpts)
	if err != nil {
		return nil, "", fmt.Errorf("executable_opts: %w", err)
	}
	args, err := shlex.Split(sess.Args)
	if err != nil {
		return nil, "", fmt.Errorf("args: %w", err)
	}

	f := fields{
		Executable:             def.Executable,
		Extension:              def.Extension,
		RunDelimStart:          delimStartPattern,
		RunDelimHash:           runDelimHash,
		Source:                 paths.Path,
		SourceName:             filepath.Base(paths.Path),
		SourceDir:              paths.Dir,
		SourceWithoutExtension: paths.PathWithoutExtension,
		RunScript:              uuid.NewString() + ".tmp",
		Buffering:              "0",
		ExecutableOpts:         execOpts,
		Args:                   args,
	}
	if sess.Executable != "" {
		f.Executable = sess.Executable
	}

	var plans []Plan
	for _, tmpl := range templates {
		argv, err := fillStageTemplate(tmpl, f)
		if err != nil {
			return nil, "", err
		}
		plans = append(plans, Plan{Argv: argv, Encoding: encoding})
	}
	return plans, encoding, nil
}

// fillStageTemplate shell-splits tmpl, expanding {executable_opts} and
// {args} into one argv word per element and substituting every other
// `{field}` as a plain string, then resolves argv[0] via PATH explicitly
// (required on Windows, where the native spawn API does not consult PATH).
func fillStageTemplate(tmpl string, f fields) ([]string, error) {
	words, err := shlex.Split(tmpl)
	if err != nil {
		return nil, fmt.Errorf("command template %q: %w", tmpl, err)
	}

	scalar := map[string]string{
		"executable":                f.Executable,
		"extension":                 f.Extension,
		"run_delim_start":           f.RunDelimStart,
		"run_delim_hash":            f.RunDelimHash,
		"source":                    f.Source,
		"source_name":               f.SourceName,
		"source_dir":                f.SourceDir,
		"source_without_extension":  f.SourceWithoutExtension,
		"run_script":                f.RunScript,
		"buffering":                 f.Buffering,
	}

	var argv []string
	for _, w := range words {
		switch w {
		case "{executable_opts}":
			argv = append(argv, f.ExecutableOpts...)
		case "{args}":
			argv = append(argv, f.Args...)
		default:
			argv = append(argv, language.FillTemplate(w, scalar))
		}
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("command template %q produced no argv", tmpl)
	}
	resolved, err := resolveOnPath(argv[0])
	if err != nil {
		return nil, err
	}
	argv[0] = resolved
	return argv, nil
}

// resolveOnPath looks argv0 up via PATH explicitly. On Windows the native
// CreateProcess spawn path does not consult PATH for a bare command name,
// so exec.LookPath is used on every platform for consistent behavior.
func resolveOnPath(argv0 string) (string, error) {
	if filepath.IsAbs(argv0) {
		return argv0, nil
	}
	path, err := exec.LookPath(argv0)
	if err != nil {
		if runtime.GOOS == "windows" {
			return "", fmt.Errorf("resolving %q on PATH: %w", argv0, err)
		}
		return argv0, nil
	}
	return path, nil
}

// WriteSource writes the run program to the temp source file path,
// skipped entirely for interpreter-script languages (which stream the
// program over stdin instead).
func WriteSource(paths SourcePaths, program string) error {
	if err := os.MkdirAll(paths.Dir, 0o755); err != nil {
		return fmt.Errorf("creating temp source dir: %w", err)
	}
	return os.WriteFile(paths.Path, []byte(program), 0o644)
}
