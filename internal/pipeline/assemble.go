// Package pipeline ties components A-J into the document-level entry
// point: it groups the document parser's raw chunks into sessions and
// sources, resolves their copy dependencies, finalises and hashes them,
// executes what the cache does not already have, and reports the
// specification's exit-code bits back to the caller.
package pipeline

import (
	"fmt"

	"github.com/mvp-joe/codebraid/internal/chunk"
	"github.com/mvp-joe/codebraid/internal/collection"
	"github.com/mvp-joe/codebraid/internal/copyresolve"
	"github.com/mvp-joe/codebraid/internal/language"
	"github.com/mvp-joe/codebraid/internal/message"
)

// RawChunk is the document parser's external interface (§6): an ordered
// block or inline snippet with a plain key->value option map, before any
// validation or collection assembly has happened.
type RawChunk struct {
	Command               chunk.Command
	Code                  []string
	Options               map[string]any
	OriginName            string
	OriginStartLineNumber int
	Inline                bool

	// IncludeContent is the raw content of the file named by an `include`
	// option, read by the caller (a filesystem concern outside this
	// package) before Assemble runs. Ignored when Options has no
	// `include` key.
	IncludeContent string
}

// Document is every collection assembled from one document's raw chunks,
// in first-appearance order (the order sessions/sources are executed and
// reported in).
type Document struct {
	Sessions []*collection.Session
	Sources  []*collection.Source
}

// Assemble validates every raw chunk's options, groups the resulting
// chunks into sessions and sources by CodeKey (§3), resolves copy/paste
// dependencies across the whole document, and finalises (hashes) every
// session. catalogue resolves a chunk's `lang` option (or the session's
// inherited language) to its language.Definition; a name absent from it
// is left as a SysConfig error on that chunk's session rather than
// failing the whole build, since it may be a Jupyter-only session
// (identified by `jupyter_kernel` instead of a language definition).
func Assemble(raws []RawChunk, catalogue map[string]*language.Definition) (*Document, error) {
	doc := &Document{}
	sessions := map[collection.Key]*collection.Session{}
	sources := map[collection.Key]*collection.Source{}
	names := map[string]bool{}
	namedLangs := map[string]string{}

	for i, raw := range raws {
		execute := raw.Command != chunk.CommandPaste
		lang, name, kind := peekGroupingFields(raw.Options)
		if name != "" {
			// A named collection's later chunks may omit lang and inherit
			// the one given by the first chunk that named it.
			nk := kind + "\x00" + name + "\x00" + raw.OriginName
			if lang == "" {
				lang = namedLangs[nk]
			} else if _, seen := namedLangs[nk]; !seen {
				namedLangs[nk] = lang
			}
		}

		key := collection.Key{Lang: lang, Name: name, Origin: raw.OriginName}
		if kind == "source" {
			key.Kind = collection.KindSource
		} else {
			key.Kind = collection.KindSession
		}

		isFirst := false
		var sess *collection.Session
		var src *collection.Source
		if key.Kind == collection.KindSession {
			sess, isFirst = sessions[key], false
			if sess == nil {
				sess = collection.NewSession(key)
				sessions[key] = sess
				doc.Sessions = append(doc.Sessions, sess)
				isFirst = true
			}
		} else {
			src = sources[key]
			if src == nil {
				src = collection.NewSource(key)
				sources[key] = src
				doc.Sources = append(doc.Sources, src)
			}
		}

		opts, err := chunk.Parse(raw.Options, raw.Command, raw.Inline, execute, isFirst)
		if err != nil {
			return nil, fmt.Errorf("chunk %d (%s:%d): %w", i, raw.OriginName, raw.OriginStartLineNumber, err)
		}

		if opts.Name != "" {
			if names[opts.Name] {
				return nil, fmt.Errorf("chunk %d (%s:%d): duplicate name %q", i, raw.OriginName, raw.OriginStartLineNumber, opts.Name)
			}
			names[opts.Name] = true
		}

		c := chunk.New(raw.Command, raw.Inline, raw.OriginName, raw.OriginStartLineNumber, opts, raw.Code)
		if opts.Include != nil {
			if err := c.ResolveInclude(raw.IncludeContent); err != nil {
				return nil, fmt.Errorf("chunk %d (%s:%d): %w", i, raw.OriginName, raw.OriginStartLineNumber, err)
			}
		}

		if sess != nil {
			if isFirst {
				sess.AppendFirstChunkOptions(opts)
			}
			sess.Append(c)
		} else {
			src.Append(c)
		}
	}

	allChunks := make([]*chunk.Chunk, 0)
	for _, s := range doc.Sessions {
		allChunks = append(allChunks, s.Chunks...)
	}
	for _, s := range doc.Sources {
		allChunks = append(allChunks, s.Chunks...)
	}

	named := map[string]*chunk.Chunk{}
	for _, c := range allChunks {
		if c.Options.Name != "" {
			named[c.Options.Name] = c
		}
	}

	resolver := copyresolve.New(named)
	if err := resolver.AttachTargets(allChunks); err != nil {
		return nil, err
	}
	if err := resolver.Resolve(allChunks); err != nil {
		return nil, err
	}

	for _, sess := range doc.Sessions {
		resolveLanguage(sess, catalogue)
		if err := sess.Finalize(); err != nil {
			return nil, fmt.Errorf("session %q: %w", sess.Key.Name, err)
		}
	}
	for _, src := range doc.Sources {
		if err := src.Finalize(); err != nil {
			return nil, fmt.Errorf("source %q: %w", src.Key.Name, err)
		}
	}

	return doc, nil
}

// peekGroupingFields reads the session/source/lang keys directly out of
// the raw option map, without the validation chunk.Parse performs, so
// Assemble can decide which collection a chunk belongs to before that
// collection's first-chunk-only option set is known. Full validation
// (including the mutual-exclusivity error if both session and source are
// set) still happens in the chunk.Parse call that follows.
func peekGroupingFields(raw map[string]any) (lang, name, kind string) {
	if v, ok := raw["lang"].(string); ok {
		lang = v
	}
	if v, ok := raw["session"].(string); ok {
		name, kind = v, "session"
		return
	}
	if v, ok := raw["source"].(string); ok {
		name, kind = v, "source"
		return
	}
	return lang, "", "session"
}

// resolveLanguage attaches a session's language.Definition from catalogue
// by its chunks' `lang` option (first chunk to specify one wins, matching
// the first-chunk-only option convention for everything else session-
// scoped). A Jupyter session (jupyter_kernel set) never resolves one.
func resolveLanguage(sess *collection.Session, catalogue map[string]*language.Definition) {
	if sess.JupyterKernel != "" {
		return
	}
	langName := sess.Key.Lang
	for _, c := range sess.Chunks {
		if c.Options.Lang != "" {
			langName = c.Options.Lang
			break
		}
	}
	def, ok := catalogue[langName]
	if !ok {
		sess.Status.Add(message.New(message.Error, message.CategorySysConfig,
			fmt.Sprintf("no language definition named %q", langName)))
		return
	}
	sess.Language = def
}
