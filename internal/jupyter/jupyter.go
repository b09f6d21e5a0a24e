// Package jupyter sketches the alternative execution path used when a
// session sets `jupyter_kernel`: the subprocess executor's chunk/session
// model is reused, but code runs over a Jupyter kernel's message bus
// instead of framed stdout/stderr. Per the specification this component
// is sketch-only: only the interfaces and the kernel-name resolution rule
// are implemented; no kernel transport is wired in.
package jupyter

import (
	"context"
	"strings"
	"time"

	"github.com/mvp-joe/codebraid/internal/chunk"
)

// IOPubKind is the subset of Jupyter IOPub message types this executor
// classifies.
type IOPubKind string

const (
	IOPubStreamStdout   IOPubKind = "stream.stdout"
	IOPubStreamStderr   IOPubKind = "stream.stderr"
	IOPubDisplayData    IOPubKind = "display_data"
	IOPubExecuteResult  IOPubKind = "execute_result"
	IOPubError          IOPubKind = "error"
	IOPubStatusIdle     IOPubKind = "status.idle"
)

// IOPubMessage is one message read off a kernel's IOPub channel, reduced
// to the fields this executor's classification needs.
type IOPubMessage struct {
	Kind      IOPubKind
	Text      string
	MimeData  map[string]string // mime type -> raw payload, for display_data/execute_result
	Traceback []string
}

// RichOutputFile names a file written beside the cache for one piece of
// display data, per the specification's naming rule:
// `<kernel>-<session>-<outidx>-<n>.<ext>` or `<name>-<n>.<ext>`.
type RichOutputFile struct {
	MimeType string
	Path     string
}

// KernelClient abstracts the kernel transport (e.g. a Jupyter kernel
// gateway client). No implementation is wired in; an adopter supplies one
// against whatever kernel manager the surrounding document converter
// already uses.
type KernelClient interface {
	// Start launches (or attaches to) the named kernel.
	Start(ctx context.Context, kernelName string) error
	// Execute submits code for execution and returns the message ID used
	// to correlate IOPub messages.
	Execute(ctx context.Context, code string) (msgID string, err error)
	// NextIOPub blocks for the next IOPub message correlated with msgID,
	// honoring timeout, per the specification's per-message Jupyter
	// timeout (default 60s).
	NextIOPub(ctx context.Context, msgID string, timeout time.Duration) (*IOPubMessage, error)
	// Shutdown stops the kernel.
	Shutdown(ctx context.Context) error
}

// DefaultJupyterTimeout is applied when a session does not set its own
// jupyter_timeout.
const DefaultJupyterTimeout = 60 * time.Second

// kernelAliases maps case-insensitive display names and language names to
// a canonical kernel name. Ambiguous aliases (a language name shared by
// more than one installed kernel) are dropped rather than guessed.
type kernelAliases struct {
	byAlias map[string]string
	dropped map[string]bool
}

func newKernelAliases() *kernelAliases {
	return &kernelAliases{byAlias: map[string]string{}, dropped: map[string]bool{}}
}

// Register associates displayName and language with kernelName. Calling
// Register twice for the same alias with a different kernelName marks the
// alias ambiguous and drops it.
func (k *kernelAliases) Register(kernelName, displayName, language string) {
	for _, alias := range []string{displayName, language} {
		if alias == "" {
			continue
		}
		key := strings.ToLower(alias)
		if existing, ok := k.byAlias[key]; ok && existing != kernelName {
			delete(k.byAlias, key)
			k.dropped[key] = true
			continue
		}
		if k.dropped[key] {
			continue
		}
		k.byAlias[key] = kernelName
	}
}

// Resolve looks up name case-insensitively against registered aliases.
func (k *kernelAliases) Resolve(name string) (string, bool) {
	kernelName, ok := k.byAlias[strings.ToLower(name)]
	return kernelName, ok
}

// ChunkBatch is the unit of code actually sent to Execute: a run of
// chunks accumulated until a complete boundary, mirroring the built-in
// executor's output_index grouping.
type ChunkBatch struct {
	Chunks []*chunk.Chunk
}

// Code concatenates the batch's chunk code into one string to execute.
func (b ChunkBatch) Code() string {
	var lines []string
	for _, c := range b.Chunks {
		lines = append(lines, c.CodeLines...)
	}
	return strings.Join(lines, "\n")
}

// BatchChunks groups chunks into ChunkBatches by output_index, matching
// the rule: a chunk with output_index == its own index sends alone; an
// incomplete chunk accumulates into the batch that ends at its
// output_index.
func BatchChunks(chunks []*chunk.Chunk) []ChunkBatch {
	var batches []ChunkBatch
	var current []*chunk.Chunk
	for _, c := range chunks {
		current = append(current, c)
		if c.OutputIndex == c.Index {
			batches = append(batches, ChunkBatch{Chunks: current})
			current = nil
		}
	}
	if len(current) > 0 {
		batches = append(batches, ChunkBatch{Chunks: current})
	}
	return batches
}
