// Package sandboxrt is a NodeFactory adapter for user node
// implementations written as standalone scripts rather than compiled-in
// Go types — the "dynamic library lookup" adapter named in spec §9,
// adapted from the teacher's subprocess sandbox. Each node type is
// resolved to a script under <workspace>/nodes/<type>/run.{py,js,sh};
// the script receives {"inputs":..., "params":...} as a single JSON
// document on stdin and must print a JSON output dict on stdout.
package sandboxrt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/linkflow/nodeflow/internal/kernel"
)

var (
	// ErrNoScript is returned when a node type has no recognized run
	// script in the workspace.
	ErrNoScript = errors.New("sandboxrt: no run script found for node type")
	// ErrRuntimeUnavailable is returned when a script's interpreter isn't
	// on PATH.
	ErrRuntimeUnavailable = errors.New("sandboxrt: interpreter not available")
)

// Runtime resolves one scripting language: how to detect its script file
// and how to invoke the interpreter.
type Runtime struct {
	// Filename is the script's expected name under the node type's
	// directory, e.g. "run.py".
	Filename string
	// Interpreter is the executable to look up on PATH.
	Interpreter string
}

// defaultRuntimes is tried in order for each node type directory; the
// first matching file wins.
var defaultRuntimes = []Runtime{
	{Filename: "run.py", Interpreter: "python3"},
	{Filename: "run.js", Interpreter: "node"},
	{Filename: "run.sh", Interpreter: "bash"},
}

// Factory is a workspace.NodeFactory that resolves a node type to a
// script under workspaceDir/nodes/<type>/ and returns a Node wrapping it.
type Factory struct {
	WorkspaceDir string
	Timeout      time.Duration
	Logger       *slog.Logger
	Runtimes     []Runtime
}

// NewFactory builds a Factory rooted at workspaceDir. timeout of zero
// defaults to 30s per invocation.
func NewFactory(workspaceDir string, timeout time.Duration, logger *slog.Logger) *Factory {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{WorkspaceDir: workspaceDir, Timeout: timeout, Logger: logger, Runtimes: defaultRuntimes}
}

// New implements workspace.NodeFactory: it resolves nodeType to a run
// script and interpreter, failing if neither is found or the
// interpreter isn't available on PATH.
func (f *Factory) New(nodeType string) (kernel.Node, error) {
	dir := filepath.Join(f.WorkspaceDir, "nodes", nodeType)
	for _, rt := range f.Runtimes {
		path := filepath.Join(dir, rt.Filename)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if _, err := exec.LookPath(rt.Interpreter); err != nil {
			return nil, fmt.Errorf("%w: %s for node type %q", ErrRuntimeUnavailable, rt.Interpreter, nodeType)
		}
		return &Node{scriptPath: path, interpreter: rt.Interpreter, timeout: f.Timeout, logger: f.Logger}, nil
	}
	return nil, fmt.Errorf("%w: %q in %s", ErrNoScript, nodeType, dir)
}

// Node is a kernel.Node (satisfying its Run(inputs, params) (map[string]any,
// error) contract) that executes one external script per invocation.
// Each invocation is a fresh subprocess: the script carries no state
// across Run calls, so any pause/resume behavior must be expressed
// through the node's own inputs/params rather than in-process fields.
type Node struct {
	scriptPath  string
	interpreter string
	timeout     time.Duration
	logger      *slog.Logger
}

type scriptRequest struct {
	Inputs map[string]any `json:"inputs"`
	Params map[string]any `json:"params"`
}

// Run implements kernel.Node by invoking the script once, synchronously,
// passing inputs and params as a single JSON document on stdin and
// decoding its stdout as the output dict. A nonzero exit or output that
// fails to parse as a JSON object is surfaced as an ordinary error, which
// the kernel then treats as fatal.
func (n *Node) Run(inputs, params map[string]any) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	payload, err := json.Marshal(scriptRequest{Inputs: inputs, Params: params})
	if err != nil {
		return nil, fmt.Errorf("sandboxrt: marshaling request: %w", err)
	}

	cmd := exec.CommandContext(ctx, n.interpreter, n.scriptPath)
	cmd.Dir = filepath.Dir(n.scriptPath)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Env = safeEnv()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("sandboxrt: %s timed out after %s", n.scriptPath, n.timeout)
	}
	if runErr != nil {
		n.logger.Debug("sandboxrt: script failed", "script", n.scriptPath, "stderr", stderr.String())
		return nil, fmt.Errorf("sandboxrt: %s: %w: %s", n.scriptPath, runErr, stderr.String())
	}

	var out map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("sandboxrt: %s: output is not a JSON object: %w", n.scriptPath, err)
	}
	return out, nil
}

// safeEnv returns a minimal environment for subprocess node scripts:
// never the full parent environment, which may carry secrets the script
// has no business seeing.
func safeEnv() []string {
	return []string{
		"PATH=/usr/local/bin:/usr/bin:/bin",
		"HOME=" + os.TempDir(),
		"TMPDIR=" + os.TempDir(),
		"LANG=en_US.UTF-8",
	}
}
