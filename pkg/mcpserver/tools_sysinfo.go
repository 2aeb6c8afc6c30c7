package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/toolhost/toolhost/pkg/defaults"
	"github.com/toolhost/toolhost/pkg/sysinfo"
)

// registerSystemTools registers the read-only host metrics toolset.
func (s *Server) registerSystemTools() {
	const ts = defaults.ToolsetSystem
	readOnly := &mcp.ToolAnnotations{ReadOnlyHint: true}

	s.addTool(ts, &mcp.Tool{
		Name:        "system_overview",
		Title:       "System Overview",
		Description: `One-call summary of the host: hostname, OS, uptime, CPU count and
usage, memory usage, and load averages.

USE THIS TOOL WHEN:
- Starting any system investigation — call this first, then drill into
  cpu_info / memory_info / disk_info / process_list as needed.`,
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Annotations: readOnly,
	}, s.handleSystemOverview)

	s.addTool(ts, &mcp.Tool{
		Name:        "cpu_info",
		Title:       "CPU Info",
		Description: `CPU details: model, physical/logical core counts, frequency, and a
sampled per-core usage snapshot.`,
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Annotations: readOnly,
	}, s.handleCPUInfo)

	s.addTool(ts, &mcp.Tool{
		Name:        "memory_info",
		Title:       "Memory Info",
		Description: `RAM and swap usage: total, used, available, and percentages.`,
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Annotations: readOnly,
	}, s.handleMemoryInfo)

	s.addTool(ts, &mcp.Tool{
		Name:        "disk_info",
		Title:       "Disk Info",
		Description: `Mounted partitions with usage percentages, plus per-device I/O
counters where available.`,
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Annotations: readOnly,
	}, s.handleDiskInfo)

	s.addTool(ts, &mcp.Tool{
		Name:        "process_list",
		Title:       "Process List",
		Description: fmt.Sprintf(`Top processes sorted by cpu (default), memory, pid, or name.

RETURNS: up to count rows (default %d, max %d) with pid, name, user,
cpu/memory percentages, and status.`, defaults.ProcessListCount, defaults.ProcessListMax),
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"count": map[string]any{
					"type":        "integer",
					"description": fmt.Sprintf("Rows to return (default %d, max %d)", defaults.ProcessListCount, defaults.ProcessListMax),
				},
				"sort_by": map[string]any{
					"type":        "string",
					"description": "Sort key: cpu, memory, pid, or name (default cpu)",
					"enum":        []string{"cpu", "memory", "pid", "name"},
				},
			},
		},
		Annotations: readOnly,
	}, s.handleProcessList)

	s.addTool(ts, &mcp.Tool{
		Name:        "network_info",
		Title:       "Network Info",
		Description: `Network interfaces with addresses and MTU, plus TCP/UDP connection
counts where the platform exposes them.`,
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Annotations: readOnly,
	}, s.handleNetworkInfo)

	s.addTool(ts, &mcp.Tool{
		Name:        "service_status",
		Title:       "Service Status",
		Description: `Query a systemd unit's state via systemctl (Linux only; other
platforms return a capability error).

EXAMPLE: {"name": "nginx"}`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{
					"type":        "string",
					"description": "Unit name, with or without the .service suffix",
				},
			},
			"required": []string{"name"},
		},
		Annotations: readOnly,
	}, s.handleServiceStatus)

	s.addTool(ts, &mcp.Tool{
		Name:        "uptime_info",
		Title:       "Uptime Info",
		Description: `Boot time, uptime, and logged-in users.`,
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Annotations: readOnly,
	}, s.handleUptimeInfo)
}

func (s *Server) handleSystemOverview(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	overview, err := sysinfo.GetOverview(ctx)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(overview)
}

func (s *Server) handleCPUInfo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	detail, err := sysinfo.GetCPU(ctx)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(detail)
}

func (s *Server) handleMemoryInfo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	detail, err := sysinfo.GetMemory(ctx)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(detail)
}

func (s *Server) handleDiskInfo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	detail, err := sysinfo.GetDisks(ctx)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(detail)
}

func (s *Server) handleProcessList(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Count  int    `json:"count"`
		SortBy string `json:"sort_by"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	procs, err := sysinfo.GetProcesses(ctx, args.Count, args.SortBy)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(struct {
		Count     int                `json:"count"`
		Processes []sysinfo.ProcessInfo `json:"processes"`
	}{Count: len(procs), Processes: procs})
}

func (s *Server) handleNetworkInfo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	detail, err := sysinfo.GetNetwork(ctx)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(detail)
}

func (s *Server) handleServiceStatus(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Name string `json:"name"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	detail, err := sysinfo.GetService(ctx, args.Name)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(detail)
}

func (s *Server) handleUptimeInfo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	detail, err := sysinfo.GetUptime(ctx)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(detail)
}
