package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mvp-joe/codebraid/internal/chunk"
	"github.com/mvp-joe/codebraid/internal/language"
	"github.com/mvp-joe/codebraid/internal/message"
	"github.com/mvp-joe/codebraid/internal/pipeline"
	"github.com/mvp-joe/codebraid/internal/progress"
)

// rawChunkDoc is the wire format run.go reads in place of a real document
// parser. The specification's core excludes the Pandoc AST converter
// (§1) and treats "an external parser yields ordered CodeChunk objects"
// as a data-flow boundary rather than part of the execution core; this
// struct is that boundary's on-disk shape, one JSON object per document.
type rawChunkDoc struct {
	Chunks []rawChunkWire `json:"chunks"`
}

type rawChunkWire struct {
	Command   string         `json:"command"`
	Code      []string       `json:"code"`
	Options   map[string]any `json:"options"`
	Origin    string         `json:"origin"`
	StartLine int            `json:"start_line"`
	Inline    bool           `json:"inline"`
}

var runCmd = &cobra.Command{
	Use:   "run [document.json]",
	Short: "Assemble and execute a document's code chunks",
	Long: `run reads a JSON document of raw code chunks (the external parser's
output boundary, per the specification), groups them into sessions and
sources, resolves copy dependencies, executes what the cache does not
already have, and exits with the specification's process-coordinator exit
code.

With no file argument, the document is read from stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening document: %w", err)
		}
		defer f.Close()
		r = f
	}

	raws, err := decodeRawChunks(r)
	if err != nil {
		return fmt.Errorf("decoding document: %w", err)
	}

	catalogue, err := loadCatalogue(cfg.Languages.DefinitionsDir)
	if err != nil {
		return fmt.Errorf("loading language catalogue: %w", err)
	}

	doc, err := pipeline.Assemble(raws, catalogue)
	if err != nil {
		return fmt.Errorf("assembling document: %w", err)
	}

	var reporter progress.Reporter
	if cfg.Progress.Quiet {
		reporter = progress.NoopReporter{}
	} else {
		reporter = progress.NewCLIReporter(cmd.ErrOrStderr())
	}
	if closer, ok := reporter.(interface{ Close() }); ok {
		defer closer.Close()
	}

	if err := pipeline.EnsureTempDir(cfg.Exec.TempDir); err != nil {
		return fmt.Errorf("preparing temp directory: %w", err)
	}

	cacheKey, err := documentCacheKey(args)
	if err != nil {
		return fmt.Errorf("computing cache key: %w", err)
	}

	exitCode, err := pipeline.Run(context.Background(), doc, pipeline.Options{
		TempDir:   cfg.Exec.TempDir,
		CacheRoot: cfg.Cache.Root,
		CacheKey:  cacheKey,
		NoCache:   cfg.Cache.NoCache,
		Version:   getVersion(),
		Reporter:  reporter,
	})
	if err != nil {
		return fmt.Errorf("running document: %w", err)
	}

	printResults(cmd.OutOrStdout(), doc)

	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}

// parseCommand validates the wire document's command string against the
// chunk package's known command kinds.
func parseCommand(s string) (chunk.Command, error) {
	cmd := chunk.Command(s)
	switch cmd {
	case chunk.CommandCode, chunk.CommandExpr, chunk.CommandNB, chunk.CommandPaste, chunk.CommandRepl, chunk.CommandRun:
		return cmd, nil
	default:
		return "", fmt.Errorf("unknown command %q", s)
	}
}

// decodeRawChunks reads the wire document and converts it into the
// pipeline's RawChunk form, reading the file named by each chunk's
// `include` option (a file name, or a map with a `file` key; a filesystem
// concern the specification places outside the execution core). A
// relative name is resolved against the directory of the chunk's origin.
func decodeRawChunks(r io.Reader) ([]pipeline.RawChunk, error) {
	var wire rawChunkDoc
	dec := json.NewDecoder(r)
	if err := dec.Decode(&wire); err != nil {
		return nil, err
	}

	out := make([]pipeline.RawChunk, 0, len(wire.Chunks))
	for i, w := range wire.Chunks {
		cmd, err := parseCommand(w.Command)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}

		raw := pipeline.RawChunk{
			Command:               cmd,
			Code:                  w.Code,
			Options:               w.Options,
			OriginName:            w.Origin,
			OriginStartLineNumber: w.StartLine,
			Inline:                w.Inline,
		}

		inc, _ := w.Options["include"].(string)
		if spec, ok := w.Options["include"].(map[string]any); ok {
			inc, _ = spec["file"].(string)
		}
		if inc != "" {
			path := inc
			if !filepath.IsAbs(path) {
				path = filepath.Join(filepath.Dir(w.Origin), path)
			}
			content, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("chunk %d: reading include %q: %w", i, inc, err)
			}
			raw.IncludeContent = string(content)
		}

		out = append(out, raw)
	}
	return out, nil
}

// loadCatalogue merges the built-in language catalogue with any
// user-supplied definitions found in dir, one YAML file per language,
// each unmarshalled into a language.RawDefinition before being resolved
// with language.Load. User definitions of the same name override the
// matching built-in.
func loadCatalogue(dir string) (map[string]*language.Definition, error) {
	catalogue := language.DefaultCatalogue()
	if dir == "" {
		return catalogue, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return catalogue, nil
		}
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yml" && ext != ".yaml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		var raw language.RawDefinition
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}

		def, err := language.Load(raw)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
		catalogue[def.Language] = def
	}
	return catalogue, nil
}

// documentCacheKey derives the cache key the whole document's sessions
// share: the document's own path, or "-" for stdin. Keeping each
// document's cache entries under a distinct key keeps two documents that
// happen to define identically-named sessions from colliding.
func documentCacheKey(args []string) (string, error) {
	if len(args) == 0 {
		return "-", nil
	}
	abs, err := filepath.Abs(args[0])
	if err != nil {
		return "", err
	}
	return abs, nil
}

// printResults writes one line per session/source naming its chunk count
// and rollup status, followed by every recorded message. This is a
// placeholder for the document converter's real rendering, which is out
// of scope for the execution core (§1).
func printResults(w io.Writer, doc *pipeline.Document) {
	for _, sess := range doc.Sessions {
		fmt.Fprintf(w, "session %s/%s: %d chunks\n", sess.Key.Lang, sess.Key.Name, len(sess.Chunks))
		printMessages(w, sess.Status.Messages())
	}
	for _, src := range doc.Sources {
		fmt.Fprintf(w, "source %s/%s: %d chunks\n", src.Key.Lang, src.Key.Name, len(src.Chunks))
		printMessages(w, src.Status.Messages())
	}
}

func printMessages(w io.Writer, msgs []*message.Message) {
	for _, m := range msgs {
		fmt.Fprintf(w, "  %s\n", m.String())
	}
}
