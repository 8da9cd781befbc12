// Package prompt renders the system prompt each agent carries as
// history[0], including the live tool interface listing regenerated
// on every Kernel turn so newly discovered tools are visible without
// restarting the agent.
package prompt

import (
	"fmt"
	"strings"

	"github.com/kadirpekel/agentkernel/internal/toolspec"
)

// Config carries the pieces of the system prompt that vary per agent:
// its role and the tag pair the Kernel expects tool-call JSON wrapped
// in.
type Config struct {
	Role         string
	ToolTagStart string
	ToolTagEnd   string
}

// jsonTypeToPython maps a JSON Schema primitive type to the Python
// type hint rendered in the generated tool interface listing. The
// sandbox proxy generator renders no type hints.
var jsonTypeToPython = map[string]string{
	"string":  "str",
	"integer": "int",
	"number":  "float",
	"boolean": "bool",
	"array":   "list",
	"object":  "dict",
}

// Render produces the full system prompt for an agent with the given
// role, describing every available tool as a Python-class-shaped
// interface listing so the model can call it through generated code or
// through a JSON tool-call batch indistinguishably.
func Render(cfg Config, descriptors []toolspec.Descriptor) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an autonomous agent with the role: %s.\n\n", cfg.Role)
	b.WriteString("You act by emitting a JSON array of tool calls wrapped between ")
	fmt.Fprintf(&b, "%s and %s, or by writing Python code for the execute_python_code tool ", cfg.ToolTagStart, cfg.ToolTagEnd)
	b.WriteString("that calls the same tools through the generated Tools class.\n\n")

	b.WriteString("Available tools:\n\n")
	b.WriteString(renderToolInterface(descriptors))

	b.WriteString("\nA tool call batch looks like:\n")
	fmt.Fprintf(&b, "%s[{\"call_id\": \"call_1\", \"tool_name\": \"...\", \"arguments\": {...}}]%s\n", cfg.ToolTagStart, cfg.ToolTagEnd)
	b.WriteString("Reference an earlier call's output with the string \"$call_1\" in a later call's arguments.\n")

	return b.String()
}

// renderToolInterface renders every descriptor as a Python class
// method signature plus docstring, using the same method names and
// docstrings the sandbox proxy generator emits. Unlike the proxy, the
// listing adds type hints and gives parameters not in the schema's
// required list a "= None" default.
func renderToolInterface(descriptors []toolspec.Descriptor) string {
	if len(descriptors) == 0 {
		return "(no tools are currently available)\n"
	}

	var b strings.Builder
	b.WriteString("class Tools:\n")
	for _, d := range descriptors {
		params := d.InputProperties()
		required := requiredSet(d.InputSchema)
		sig := make([]string, 0, len(params))
		for _, p := range params {
			typeName := propertyType(d.InputSchema, p)
			if required[p] {
				sig = append(sig, fmt.Sprintf("%s: %s", p, typeName))
			} else {
				sig = append(sig, fmt.Sprintf("%s: %s = None", p, typeName))
			}
		}
		doc := d.Description
		if doc == "" {
			doc = "No description provided."
		}
		fmt.Fprintf(&b, "    def %s(%s):\n", d.ProxyName(), strings.Join(sig, ", "))
		fmt.Fprintf(&b, "        \"\"\"%s\"\"\"\n", doc)
	}
	return b.String()
}

func requiredSet(schema map[string]any) map[string]bool {
	out := map[string]bool{}
	req, _ := schema["required"].([]any)
	for _, r := range req {
		if s, ok := r.(string); ok {
			out[s] = true
		}
	}
	return out
}

func propertyType(schema map[string]any, name string) string {
	props, _ := schema["properties"].(map[string]any)
	prop, _ := props[name].(map[string]any)
	t, _ := prop["type"].(string)
	if py, ok := jsonTypeToPython[t]; ok {
		return py
	}
	return "any"
}
