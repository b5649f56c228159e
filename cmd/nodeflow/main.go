// Command nodeflow is the CLI surface of spec §6: a single "run"
// subcommand that kicks a pipeline to completion and reports its
// terminal status and final output. Resume is a programmatic API only
// and is deliberately not exposed here.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/linkflow/nodeflow/internal/graph"
	"github.com/linkflow/nodeflow/internal/kernel"
	"github.com/linkflow/nodeflow/internal/limiter"
	"github.com/linkflow/nodeflow/internal/loopnode"
	"github.com/linkflow/nodeflow/internal/nodes"
	"github.com/linkflow/nodeflow/internal/observability"
	"github.com/linkflow/nodeflow/internal/pipeline"
	"github.com/linkflow/nodeflow/internal/resolve"
	"github.com/linkflow/nodeflow/internal/sandboxrt"
	"github.com/linkflow/nodeflow/internal/scheduler"
	"github.com/linkflow/nodeflow/internal/secretcrypto"
	"github.com/linkflow/nodeflow/internal/version"
	"github.com/linkflow/nodeflow/internal/workspace"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// inputFlags collects repeated "--input key=value" flags into a map.
type inputFlags map[string]string

func (i inputFlags) String() string {
	parts := make([]string, 0, len(i))
	for k, v := range i {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (i inputFlags) Set(s string) error {
	key, value, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("--input must be key=value, got %q", s)
	}
	i[key] = value
	return nil
}

func run() error {
	workspaceDir := flag.String("workspace", getEnv("NODEFLOW_WORKSPACE", "."), "Workspace directory")
	inputs := make(inputFlags)
	flag.Var(inputs, "input", "Initial pipeline input as key=value (repeatable)")
	flag.Parse()

	const usage = "usage: nodeflow run <pipeline-path> [--workspace DIR] [--input key=value]*"
	if flag.NArg() < 2 || flag.Arg(0) != "run" {
		return fmt.Errorf(usage)
	}
	pipelinePath := flag.Arg(1)
	// flag.Parse stops at the first positional argument, so parse the
	// flags that follow "run <pipeline-path>" as well.
	if err := flag.CommandLine.Parse(flag.Args()[2:]); err != nil {
		return err
	}
	if flag.NArg() != 0 {
		return fmt.Errorf(usage)
	}

	absWorkspace, err := filepath.Abs(*workspaceDir)
	if err != nil {
		return fmt.Errorf("resolving workspace dir: %w", err)
	}

	// Structured logs go to stderr so stdout carries only the pipeline
	// result, per the CLI contract in spec §6.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	printBanner(logger)

	desc, err := workspace.LoadPipeline(pipelinePath)
	if err != nil {
		return err
	}

	extra, closeExtra, err := buildExtraSource(logger)
	if err != nil {
		return fmt.Errorf("wiring reference sources: %w", err)
	}
	defer closeExtra()

	metrics := observability.NewKernelMetrics()
	factory := buildFactory(absWorkspace, logger)

	entries, err := buildEntries(desc.Graph, absWorkspace, factory, extra, metrics, logger)
	if err != nil {
		return err
	}

	pipelineInputs := make(map[string]any, len(inputs))
	for k, v := range inputs {
		pipelineInputs[k] = v
	}

	governor := limiter.NewGovernor(0, 0, desc.Limits.MaxTotalNodeCalls)
	runner := scheduler.New(entries, pipelineInputs, desc.Params, extra, logger)
	maxIdle := time.Duration(desc.Limits.MaxIdleSeconds * float64(time.Second))
	pl := pipeline.New(runner, desc.Graph.Final, maxIdle, governor, logger)

	ctx := context.Background()

	var status kernel.Status
	var output map[string]any
	var succeeded bool

	if desc.Loop != nil {
		lp, err := loopnode.New(pl, *desc.Loop, desc.Limits.MaxIterations, logger)
		if err != nil {
			return fmt.Errorf("constructing loop: %w", err)
		}
		if err := lp.Run(ctx); err != nil {
			return err
		}
		status, output, succeeded = lp.Status(), lp.FinalOutput(), lp.Succeeded()
	} else {
		if err := pl.Run(ctx); err != nil {
			return err
		}
		status, output, succeeded = pl.Status(), pl.FinalOutput(), pl.Succeeded()
	}

	logger.Info("pipeline finished", slog.String("status", string(status)), slog.Any("metrics", metrics.Snapshot()))

	result, err := json.MarshalIndent(map[string]any{
		"status": status,
		"output": output,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Println(string(result))

	if !succeeded {
		os.Exit(1)
	}
	return nil
}

// buildFactory layers the in-process built-in registry ahead of the
// subprocess sandboxrt runtime, so compiled-in node types never pay the
// subprocess cost.
func buildFactory(workspaceDir string, logger *slog.Logger) workspace.NodeFactory {
	registry := workspace.NewRegistry()
	registry.MustRegister("hello", func() kernel.Node { return nodes.NewHello() })
	registry.MustRegister("transform", func() kernel.Node { return nodes.NewTransform() })
	registry.MustRegister("condition", func() kernel.Node { return nodes.NewCondition() })

	sandboxFactory := sandboxrt.NewFactory(workspaceDir, 30*time.Second, logger)
	return workspace.ChainFactory{registry, sandboxFactory}
}

// buildEntries instantiates one kernel.Instance per declared node,
// resolving its required-input schema from the workspace and attaching
// shared metrics. extra is threaded down to any nested pipeline/loop
// node so "${secrets.*}"/"${vars.*}" references resolve the same way
// inside a nested subgraph as they do at the top level.
func buildEntries(g graph.GraphDescriptor, workspaceDir string, factory workspace.NodeFactory, extra resolve.ExtraSource, metrics *observability.KernelMetrics, logger *slog.Logger) ([]*scheduler.Entry, error) {
	entries := make([]*scheduler.Entry, 0, len(g.Nodes))
	for _, nd := range g.Nodes {
		impl, err := buildNode(nd, workspaceDir, factory, extra, metrics, logger)
		if err != nil {
			return nil, fmt.Errorf("instantiating node %q (type %q): %w", nd.ID, nd.Type, err)
		}
		schema, err := workspace.LoadNodeSchema(workspaceDir, nd.Type)
		if err != nil {
			return nil, fmt.Errorf("loading schema for node %q: %w", nd.ID, err)
		}
		inst := kernel.NewInstance(impl, logger)
		inst.Metrics = metrics
		entries = append(entries, &scheduler.Entry{
			Descriptor:     nd,
			Instance:       inst,
			RequiredInputs: workspace.RequiredInputPorts(nd.Inputs, schema),
		})
	}
	return entries, nil
}

// buildNode resolves one node descriptor to a kernel.Node. Type
// "pipeline" is a structural node — a nested pipeline (or loop, if its
// own descriptor sets loop) wired in via pipeline.AsNode/loopnode.AsNode
// so it satisfies kernel.Node like any leaf node — rather than going
// through the ordinary node factory.
func buildNode(nd graph.NodeDescriptor, workspaceDir string, factory workspace.NodeFactory, extra resolve.ExtraSource, metrics *observability.KernelMetrics, logger *slog.Logger) (kernel.Node, error) {
	if nd.Type == "pipeline" {
		return buildNestedPipelineNode(nd, workspaceDir, factory, extra, metrics, logger)
	}
	return factory.New(nd.Type)
}

// buildNestedPipelineNode loads the pipeline descriptor named by
// nd.Params["descriptor"] (a path relative to workspaceDir), builds its
// graph the same way the top-level pipeline is built, and wraps the
// result as a single kernel.Node.
func buildNestedPipelineNode(nd graph.NodeDescriptor, workspaceDir string, factory workspace.NodeFactory, extra resolve.ExtraSource, metrics *observability.KernelMetrics, logger *slog.Logger) (kernel.Node, error) {
	descPath, ok := nd.Params["descriptor"].(string)
	if !ok || descPath == "" {
		return nil, fmt.Errorf(`node %q: type "pipeline" requires params.descriptor (path to the nested pipeline yaml)`, nd.ID)
	}

	nested, err := workspace.LoadPipeline(filepath.Join(workspaceDir, descPath))
	if err != nil {
		return nil, fmt.Errorf("node %q: loading nested pipeline %s: %w", nd.ID, descPath, err)
	}

	entries, err := buildEntries(nested.Graph, workspaceDir, factory, extra, metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("node %q: building nested pipeline graph: %w", nd.ID, err)
	}

	governor := limiter.NewGovernor(0, 0, nested.Limits.MaxTotalNodeCalls)
	runner := scheduler.New(entries, nil, nested.Params, extra, logger)
	maxIdle := time.Duration(nested.Limits.MaxIdleSeconds * float64(time.Second))
	pl := pipeline.New(runner, nested.Graph.Final, maxIdle, governor, logger)

	if nested.Loop != nil {
		lp, err := loopnode.New(pl, *nested.Loop, nested.Limits.MaxIterations, logger)
		if err != nil {
			return nil, fmt.Errorf("node %q: constructing nested loop: %w", nd.ID, err)
		}
		return loopnode.AsNode{L: lp}, nil
	}
	return pipeline.AsNode{P: pl}, nil
}

// buildExtraSource wires "${secrets.*}"/"${vars.*}" reference resolution
// against Postgres/Redis when the corresponding environment variables
// are set, chaining both sources together. It returns a no-op close when
// neither is configured, so an installation with no secret/variable
// store keeps running with Unresolved/best-effort-literal fallback for
// those references.
func buildExtraSource(logger *slog.Logger) (resolve.ExtraSource, func(), error) {
	var chain resolve.ChainExtraSource
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	var rdb *redis.Client
	if addr := os.Getenv("NODEFLOW_REDIS_ADDR"); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		closers = append(closers, func() { _ = rdb.Close() })
	}

	if dsn := os.Getenv("NODEFLOW_SECRETS_DSN"); dsn != "" {
		pool, err := pgxpool.New(context.Background(), dsn)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("connecting secrets store: %w", err)
		}
		closers = append(closers, pool.Close)

		box, err := secretcrypto.NewFromString(getEnv("NODEFLOW_SECRET_KEY", ""))
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("building secret box: %w", err)
		}

		var cache *resolve.TieredCache
		if rdb != nil {
			cache = resolve.NewTieredCache(1000, 30*time.Second, 5*time.Minute, resolve.NewRedisRemoteCache(rdb))
		}

		chain = append(chain, resolve.NewSecretStore(pool, box, cache))
		logger.Info("secret store configured")
	}

	if rdb != nil {
		chain = append(chain, resolve.NewVarStore(rdb, "nodeflow:vars:"))
		logger.Info("var store configured")
	}

	if len(chain) == 0 {
		return nil, closeAll, nil
	}
	return chain, closeAll, nil
}

func printBanner(logger *slog.Logger) {
	logger.Info("NodeFlow",
		slog.String("version", version.Version),
		slog.String("commit", version.GitCommit),
		slog.String("build_time", version.BuildTime),
	)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
