package language

import (
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// DefaultCatalogue returns the built-in language definitions, recovered
// from the original implementation's codebraid_defaults module: python,
// ruby, rust, c, and sh/bash, broadened here with java, php, and
// typescript definitions so every tree-sitter grammar this module links
// against (see CompletenessChecker) has a matching language definition to
// pair with.
func DefaultCatalogue() map[string]*Definition {
	cat := map[string]*Definition{}
	for _, raw := range defaultRawDefinitions() {
		def, err := Load(raw)
		if err != nil {
			// Built-in definitions are fixed at compile time; a failure
			// here is a programming error in this file, not a document
			// author's mistake.
			panic("codebraid: invalid built-in language definition: " + err.Error())
		}
		cat[def.Language] = def
	}
	return cat
}

// pythonChunkWrapper prints each delimiter as its own statement to the
// stream it names, bracketing the user code. Fields hold only the bare
// delimiter text ("#Codebraid(...)"), quoted here by the template itself,
// so the template stays within the "bare identifier field" restriction
// template validation enforces.
const pythonChunkWrapper = `import sys as _codebraid_sys
print("{stdout_start_delim}")
print("{stderr_start_delim}", file=_codebraid_sys.stderr)
{code}
print("{stdout_end_delim}")
print("{stderr_end_delim}", file=_codebraid_sys.stderr)
`

const rubyChunkWrapper = `STDOUT.puts "{stdout_start_delim}"
STDERR.puts "{stderr_start_delim}"
{code}
STDOUT.puts "{stdout_end_delim}"
STDERR.puts "{stderr_end_delim}"
`

const bashChunkWrapper = `echo "{stdout_start_delim}"
echo "{stderr_start_delim}" 1>&2
{code}
echo "{stdout_end_delim}"
echo "{stderr_end_delim}" 1>&2
`

const cChunkWrapper = `fprintf(stdout, "{stdout_start_delim}\n");
fprintf(stderr, "{stderr_start_delim}\n");
{code}
fprintf(stdout, "{stdout_end_delim}\n");
fprintf(stderr, "{stderr_end_delim}\n");
`

const rustChunkWrapper = `println!("{stdout_start_delim}");
eprintln!("{stderr_start_delim}");
{code}
println!("{stdout_end_delim}");
eprintln!("{stderr_end_delim}");
`

const javaChunkWrapper = `System.out.println("{stdout_start_delim}");
System.err.println("{stderr_start_delim}");
{code}
System.out.println("{stdout_end_delim}");
System.err.println("{stderr_end_delim}");
`

const phpChunkWrapper = `fwrite(STDOUT, "{stdout_start_delim}\n");
fwrite(STDERR, "{stderr_start_delim}\n");
{code}
fwrite(STDOUT, "{stdout_end_delim}\n");
fwrite(STDERR, "{stderr_end_delim}\n");
`

const typescriptChunkWrapper = `console.log("{stdout_start_delim}");
console.error("{stderr_start_delim}");
{code}
console.log("{stdout_end_delim}");
console.error("{stderr_end_delim}");
`

const genericRunTemplate = "{code}\n"

func defaultRawDefinitions() []RawDefinition {
	return []RawDefinition{
		{
			Extension:          "py",
			Language:           "python",
			InterpreterScript:  true,
			RunTemplate:        genericRunTemplate,
			ChunkWrapper:       pythonChunkWrapper,
			LineNumberPatterns: []string{"line {number}"},
			ErrorPatterns:      []string{"Error", "Exception"},
			WarningPatterns:    []string{"Warning"},
		},
		{
			Extension:          "rb",
			Language:           "ruby",
			InterpreterScript:  true,
			RunTemplate:        genericRunTemplate,
			ChunkWrapper:       rubyChunkWrapper,
			LineNumberPatterns: []string{":{number}:in"},
			ErrorPatterns:      []string{"Error"},
			WarningPatterns:    []string{"warning:"},
		},
		{
			Extension:          "rs",
			Language:           "rust",
			RunTemplate:        "fn main() {\n{code}\n}\n",
			ChunkWrapper:       rustChunkWrapper,
			LineNumberPatterns: []string{":{number}:"},
			ErrorPatterns:      []string{"error"},
			WarningPatterns:    []string{"warning"},
			CompileCommands:    "rustc -o {source_without_extension} {source}",
		},
		{
			Extension: "c",
			Language:  "c",
			RunTemplate: "#include <stdio.h>\n" +
				"int main(void) {\n{code}\nreturn 0;\n}\n",
			ChunkWrapper:       cChunkWrapper,
			LineNumberPatterns: []string{":{number}:"},
			ErrorPatterns:      []string{"error"},
			WarningPatterns:    []string{"warning"},
			CompileCommands:    "cc -o {source_without_extension} {source}",
		},
		{
			Extension:          "sh",
			Language:           "bash",
			Executable:         "bash",
			InterpreterScript:  true,
			RunTemplate:        genericRunTemplate,
			ChunkWrapper:       bashChunkWrapper,
			LineNumberPatterns: []string{"line {number}:"},
			ErrorPatterns:      []string{"error", "not found"},
		},
		{
			Extension: "java",
			Language:  "java",
			RunTemplate: "public class Codebraid {\n" +
				"public static void main(String[] args) throws Exception {\n{code}\n}\n}\n",
			ChunkWrapper:       javaChunkWrapper,
			LineNumberPatterns: []string{":{number}"},
			ErrorPatterns:      []string{"error"},
			WarningPatterns:    []string{"warning"},
		},
		{
			Extension:          "php",
			Language:           "php",
			InterpreterScript:  true,
			RunTemplate:        "<?php\n{code}\n",
			ChunkWrapper:       phpChunkWrapper,
			LineNumberPatterns: []string{"on line {number}"},
			ErrorPatterns:      []string{"Fatal error", "Parse error"},
			WarningPatterns:    []string{"Warning", "Deprecated"},
		},
		{
			Extension:          "ts",
			Language:           "typescript",
			Executable:         "ts-node",
			InterpreterScript:  true,
			RunTemplate:        genericRunTemplate,
			ChunkWrapper:       typescriptChunkWrapper,
			LineNumberPatterns: []string{":{number}:"},
			ErrorPatterns:      []string{"error TS"},
		},
	}
}

// ResolvePythonExecutable implements the supplemented executable-selection
// rule recovered from the original language.py: prefer python3 over
// python, and on Windows ignore a python.exe that is actually the
// Microsoft Store's zero-byte app-execution-alias stub rather than a real
// interpreter.
func ResolvePythonExecutable() (string, error) {
	for _, candidate := range []string{"python3", "python"} {
		path, err := exec.LookPath(candidate)
		if err != nil {
			continue
		}
		if candidate == "python" && isWindowsStoreStub(path) {
			continue
		}
		return path, nil
	}
	return "", os.ErrNotExist
}

func isWindowsStoreStub(path string) bool {
	if runtime.GOOS != "windows" {
		return false
	}
	if !strings.Contains(strings.ToLower(path), "windowsapps") {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	return info.Size() == 0
}
