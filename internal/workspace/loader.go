// Package workspace implements the external collaborators named in
// spec §6: the pipeline descriptor loader, the node-yaml schema loader,
// and the NodeFactory abstraction nodes are instantiated through.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/linkflow/nodeflow/internal/graph"
)

// ErrVersionMismatch is returned when a pipeline descriptor's version
// field is absent or not exactly graph.SupportedVersion.
var ErrVersionMismatch = errors.New("workspace: unsupported pipeline version")

// ErrInvalidDescriptor is returned when a pipeline descriptor is missing
// required structure (graph.nodes or graph.final).
var ErrInvalidDescriptor = errors.New("workspace: invalid pipeline descriptor")

// LoadPipeline reads and validates a pipeline descriptor from path. The
// version field must equal graph.SupportedVersion exactly; graph.nodes
// must be non-empty and graph.final must be set.
func LoadPipeline(path string) (graph.PipelineDescriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return graph.PipelineDescriptor{}, fmt.Errorf("workspace: reading pipeline %s: %w", path, err)
	}

	var desc graph.PipelineDescriptor
	if err := yaml.Unmarshal(raw, &desc); err != nil {
		return graph.PipelineDescriptor{}, fmt.Errorf("workspace: parsing pipeline %s: %w", path, err)
	}

	if desc.Version != graph.SupportedVersion {
		return graph.PipelineDescriptor{}, fmt.Errorf("%w: got %q, want %q", ErrVersionMismatch, desc.Version, graph.SupportedVersion)
	}
	if len(desc.Graph.Nodes) == 0 {
		return graph.PipelineDescriptor{}, fmt.Errorf("%w: graph.nodes is required", ErrInvalidDescriptor)
	}
	if desc.Graph.Final == "" {
		return graph.PipelineDescriptor{}, fmt.Errorf("%w: graph.final is required", ErrInvalidDescriptor)
	}
	if _, ok := desc.Graph.NodeByID(desc.Graph.Final); !ok {
		return graph.PipelineDescriptor{}, fmt.Errorf("%w: final node %q not declared", ErrInvalidDescriptor, desc.Graph.Final)
	}

	return desc, nil
}

// NodeSchema describes one node type's declared input ports, loaded from
// that node type's node.yaml within the workspace.
type NodeSchema struct {
	Inputs map[string]PortSchema `yaml:"inputs"`
}

// PortSchema describes a single declared input port.
type PortSchema struct {
	Required *bool `yaml:"required"`
}

// IsRequired reports whether this port is required, defaulting to true
// when unspecified (matching the "missing schema ⇒ all bindings
// required" rule).
func (p PortSchema) IsRequired() bool {
	if p.Required == nil {
		return true
	}
	return *p.Required
}

// LoadNodeSchema reads <workspaceDir>/nodes/<nodeType>/node.yaml. A
// missing file yields an empty schema (every declared binding is then
// treated as required by RequiredInputPorts).
func LoadNodeSchema(workspaceDir, nodeType string) (NodeSchema, error) {
	path := filepath.Join(workspaceDir, "nodes", nodeType, "node.yaml")
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NodeSchema{}, nil
	}
	if err != nil {
		return NodeSchema{}, fmt.Errorf("workspace: reading node schema %s: %w", path, err)
	}

	var schema NodeSchema
	if err := yaml.Unmarshal(raw, &schema); err != nil {
		return NodeSchema{}, fmt.Errorf("workspace: parsing node schema %s: %w", path, err)
	}
	return schema, nil
}

// RequiredInputPorts returns the ports of a node descriptor that are
// required: every declared binding not explicitly marked optional in
// schema, or every declared binding at all when schema has no Inputs
// entries (no schema file present).
func RequiredInputPorts(bindings map[string]any, schema NodeSchema) []string {
	var required []string
	for port := range bindings {
		portSchema, declared := schema.Inputs[port]
		if !declared || portSchema.IsRequired() {
			required = append(required, port)
		}
	}
	return required
}
