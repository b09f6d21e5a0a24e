package collection

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

type sessionIdentity struct {
	SessionName    string `json:"session_name"`
	Executable     string `json:"executable,omitempty"`
	ExecutableOpts string `json:"executable_opts,omitempty"`
	Args           string `json:"args,omitempty"`
	JupyterKernel  string `json:"jupyter_kernel,omitempty"`
	JupyterTimeout int    `json:"jupyter_timeout,omitempty"`
}

type chunkIdentity struct {
	Command  string `json:"command"`
	Inline   bool   `json:"inline"`
	Complete bool   `json:"complete"`
}

// computeHash implements the specification's BLAKE2b session hash: a
// canonical-JSON identity record, the language definition's serialised
// bytes, then per-chunk identity+code, each piece folded into the running
// digest as a domain separator before the next piece is written.
func (s *Session) computeHash() (hash, hashRoot, runDelimHash string, err error) {
	h, err := blake2b.New512(nil)
	if err != nil {
		return "", "", "", fmt.Errorf("blake2b: %w", err)
	}

	totalLen := 0
	write := func(p []byte) error {
		if _, werr := h.Write(p); werr != nil {
			return werr
		}
		totalLen += len(p)
		// Fold in the running digest as a domain separator between pieces.
		if _, werr := h.Write(h.Sum(nil)); werr != nil {
			return werr
		}
		return nil
	}

	var identity sessionIdentity
	if s.JupyterKernel != "" {
		identity = sessionIdentity{SessionName: s.Key.Name, JupyterKernel: s.JupyterKernel, JupyterTimeout: s.JupyterTimeout}
	} else {
		identity = sessionIdentity{SessionName: s.Key.Name, Executable: s.Executable, ExecutableOpts: s.ExecutableOpts, Args: s.Args}
	}
	idBytes, err := json.Marshal(identity)
	if err != nil {
		return "", "", "", err
	}
	if err := write(idBytes); err != nil {
		return "", "", "", err
	}

	if s.Language != nil {
		langBytes, err := json.Marshal(s.Language)
		if err != nil {
			return "", "", "", err
		}
		if err := write(langBytes); err != nil {
			return "", "", "", err
		}
	}

	for _, c := range s.Chunks {
		ci := chunkIdentity{Command: string(c.Command), Inline: c.Inline, Complete: c.Complete()}
		ciBytes, err := json.Marshal(ci)
		if err != nil {
			return "", "", "", err
		}
		if err := write(ciBytes); err != nil {
			return "", "", "", err
		}
		if err := write([]byte(strings.Join(c.CodeLines, "\n"))); err != nil {
			return "", "", "", err
		}
	}

	digest := h.Sum(nil)
	hexDigest := fmt.Sprintf("%x", digest)
	hash = fmt.Sprintf("%s_%d", hexDigest, totalLen)
	hashRoot = hexDigest[:16]
	runDelimHash = hexDigest[:64]
	return hash, hashRoot, runDelimHash, nil
}
