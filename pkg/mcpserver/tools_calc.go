package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/toolhost/toolhost/pkg/defaults"
)

// registerCalcTools registers the demo calculator toolset. It exists to
// verify MCP wiring end to end without touching the host.
func (s *Server) registerCalcTools() {
	s.addTool(defaults.ToolsetCalc, &mcp.Tool{
		Name:        "calculate",
		Title:       "Calculate",
		Description: `Perform basic arithmetic on two numbers.

EXAMPLE: {"a": 6, "b": 7, "operation": "multiply"}`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{
					"type":        "number",
					"description": "First operand",
				},
				"b": map[string]any{
					"type":        "number",
					"description": "Second operand",
				},
				"operation": map[string]any{
					"type":        "string",
					"description": "One of add, subtract, multiply, divide",
					"enum":        []string{"add", "subtract", "multiply", "divide"},
				},
			},
			"required": []string{"a", "b", "operation"},
		},
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true, IdempotentHint: true},
	}, s.handleCalculate)
}

func (s *Server) handleCalculate(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		A         float64 `json:"a"`
		B         float64 `json:"b"`
		Operation string  `json:"operation"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}

	var result float64
	switch args.Operation {
	case "add":
		result = args.A + args.B
	case "subtract":
		result = args.A - args.B
	case "multiply":
		result = args.A * args.B
	case "divide":
		if args.B == 0 {
			return errorResult("division by zero"), nil
		}
		result = args.A / args.B
	default:
		return errorResult("unknown operation %q (add, subtract, multiply, divide)", args.Operation), nil
	}

	return jsonResult(struct {
		A         float64 `json:"a"`
		B         float64 `json:"b"`
		Operation string  `json:"operation"`
		Result    float64 `json:"result"`
	}{A: args.A, B: args.B, Operation: args.Operation, Result: result})
}
