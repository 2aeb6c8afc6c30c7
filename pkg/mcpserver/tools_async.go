package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/toolhost/toolhost/pkg/defaults"
	"github.com/toolhost/toolhost/pkg/duration"
	"github.com/toolhost/toolhost/pkg/jsonutil"
	"github.com/toolhost/toolhost/pkg/output/events"
)

// asyncTaskResponse is returned immediately when a long-running tool is
// dispatched as a background task in HTTP mode.
type asyncTaskResponse struct {
	TaskID  string `json:"task_id"`
	Tool    string `json:"tool"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Hint    string `json:"hint"`
}

// launchAsync creates a task, runs workFn in a goroutine, and returns the
// task_id envelope immediately. The goroutine's context is detached from the
// request context: HTTP requests end when the response is sent, and the task
// must outlive them. Cancellation happens through task_cancel or the
// task-level timeout instead.
func (s *Server) launchAsync(tool string, workFn func(ctx context.Context, task *Task) (any, error)) (*mcp.CallToolResult, error) {
	task, taskCtx, err := s.tasks.Create(context.Background(), tool)
	if err != nil {
		return errorResult("%v", err), nil
	}
	s.emit(events.NewTask(task.ID, tool, string(TaskStatusRunning), s.tasks.ActiveCount()))

	s.tasks.wg.Add(1)
	go func() {
		defer s.tasks.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[mcp-task] PANIC  id=%s  tool=%s: %v\n%s", task.ID, tool, r, debug.Stack())
				task.Fail(fmt.Sprintf("internal panic: %v", r))
				s.emitTaskTerminal(task)
			}
		}()

		result, err := workFn(taskCtx, task)
		if err != nil {
			task.Fail(err.Error())
			s.emitTaskTerminal(task)
			return
		}
		data, err := jsonutil.Marshal(result)
		if err != nil {
			task.Fail(fmt.Sprintf("serializing result: %v", err))
			s.emitTaskTerminal(task)
			return
		}
		task.Complete(data)
		s.emitTaskTerminal(task)
	}()

	return jsonResult(asyncTaskResponse{
		TaskID:  task.ID,
		Tool:    tool,
		Status:  string(TaskStatusRunning),
		Message: "task started — poll task_status for progress",
		Hint:    fmt.Sprintf(`call task_status with {"task_id": %q, "wait_seconds": 10} to long-poll`, task.ID),
	})
}

// emitTaskTerminal emits a TaskEvent for a task that just reached a
// terminal state.
func (s *Server) emitTaskTerminal(task *Task) {
	snap := task.Snapshot()
	s.emit(events.NewTask(snap.ID, snap.Tool, string(snap.Status), s.tasks.ActiveCount()))
}

// registerTaskTools registers the async task management tools. These are
// always registered regardless of toolset selection: any toolset may
// contain async tools, and clients need a uniform polling surface.
func (s *Server) registerTaskTools() {
	s.addTool("tasks", &mcp.Tool{
		Name:        "task_status",
		Title:       "Task Status",
		Description: `Check the status and progress of a background task.

USE THIS TOOL WHEN:
- You started a long-running tool (run_command, find_large_files, git_push, git_pull) and received a task_id
- You need to check whether a background operation finished

POLLING PATTERN:
1. Call the long-running tool → receive {"task_id": "task_..."}
2. Call task_status with {"task_id": "...", "wait_seconds": 10} — this long-polls: it returns early the moment the task finishes
3. Repeat while status is "running"
4. When status is "completed", the result is included; task_result fetches it again later

RETURNS: JSON with status (running/completed/failed/cancelled), progress, message, and the result when completed.`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task_id": map[string]any{
					"type":        "string",
					"description": "Task ID returned when the tool was started (format: task_ followed by 16 hex chars)",
				},
				"wait_seconds": map[string]any{
					"type":        "integer",
					"description": fmt.Sprintf("Long-poll: block up to this many seconds waiting for the task to finish (0 = return immediately, max %d)", defaults.TaskWaitSecondsMax),
				},
			},
			"required": []string{"task_id"},
		},
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, s.handleTaskStatus)

	s.addTool("tasks", &mcp.Tool{
		Name:        "task_result",
		Title:       "Task Result",
		Description: `Fetch the full result of a COMPLETED background task.

USE THIS TOOL WHEN:
- task_status reported status "completed" and you want the result payload again
- You lost the earlier task_status response

RETURNS: the task's result JSON. Errors if the task is still running, failed, or was cancelled — use task_status for those states.`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task_id": map[string]any{
					"type":        "string",
					"description": "Task ID of a completed task",
				},
			},
			"required": []string{"task_id"},
		},
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, s.handleTaskResult)

	s.addTool("tasks", &mcp.Tool{
		Name:        "task_cancel",
		Title:       "Cancel Task",
		Description: `Cancel a running background task.

USE THIS TOOL WHEN:
- A task is taking too long or was started by mistake
- You want to free a task slot before starting new work

RETURNS: confirmation. Cancelling an already-finished task is an error; its result is preserved.`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"task_id": map[string]any{
					"type":        "string",
					"description": "Task ID to cancel",
				},
			},
			"required": []string{"task_id"},
		},
		Annotations: &mcp.ToolAnnotations{IdempotentHint: true},
	}, s.handleTaskCancel)

	s.addTool("tasks", &mcp.Tool{
		Name:        "task_list",
		Title:       "List Tasks",
		Description: `List background tasks, newest first, optionally filtered by status.

USE THIS TOOL WHEN:
- You lost a task_id
- You want an overview of running or recently finished background work

RETURNS: JSON array of task summaries (task_id, tool, status, progress, timestamps). Completed results are not inlined — use task_result.`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"status": map[string]any{
					"type":        "string",
					"description": "Filter: running, completed, failed, or cancelled. Empty = all.",
					"enum":        []string{"", "running", "completed", "failed", "cancelled"},
				},
			},
		},
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, s.handleTaskList)
}

func (s *Server) handleTaskStatus(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		TaskID      string `json:"task_id"`
		WaitSeconds int    `json:"wait_seconds"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	if args.TaskID == "" {
		return errorResult("task_id is required"), nil
	}

	task := s.tasks.Get(args.TaskID)
	if task == nil {
		return enrichedError(
			fmt.Sprintf("task %s not found", args.TaskID),
			[]string{
				"Task IDs expire after completed tasks age out — call task_list to see known tasks",
				"Verify the task_id was copied exactly from the tool's launch response",
			},
		), nil
	}

	task.WaitFor(ctx, args.WaitSeconds)
	return jsonResult(task.Snapshot())
}

func (s *Server) handleTaskResult(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		TaskID string `json:"task_id"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	if args.TaskID == "" {
		return errorResult("task_id is required"), nil
	}

	task := s.tasks.Get(args.TaskID)
	if task == nil {
		return errorResult("task %s not found — call task_list to see known tasks", args.TaskID), nil
	}

	snap := task.Snapshot()
	switch snap.Status {
	case TaskStatusCompleted:
		if len(snap.Result) == 0 {
			snap.Result = json.RawMessage(`null`)
		}
		return textResult(string(snap.Result)), nil
	case TaskStatusFailed:
		return errorResult("task %s failed: %s", args.TaskID, snap.Error), nil
	case TaskStatusCancelled:
		return errorResult("task %s was cancelled", args.TaskID), nil
	default:
		return errorResult("task %s is still %s — poll task_status with wait_seconds to wait for it", args.TaskID, snap.Status), nil
	}
}

func (s *Server) handleTaskCancel(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		TaskID string `json:"task_id"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	if args.TaskID == "" {
		return errorResult("task_id is required"), nil
	}

	task := s.tasks.Get(args.TaskID)
	if task == nil {
		return errorResult("task %s not found", args.TaskID), nil
	}

	before := task.Snapshot().Status
	if before.isTerminal() {
		return errorResult("task %s already finished with status %q — nothing to cancel", args.TaskID, before), nil
	}

	task.Cancel()
	s.emitTaskTerminal(task)
	return textResult(fmt.Sprintf("task %s cancelled", args.TaskID)), nil
}

func (s *Server) handleTaskList(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Status string `json:"status"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}

	var filter []TaskStatus
	if f := strings.TrimSpace(args.Status); f != "" {
		st := TaskStatus(f)
		switch st {
		case TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
			filter = append(filter, st)
		default:
			return errorResult("invalid status filter %q (running, completed, failed, cancelled)", f), nil
		}
	}

	snaps := s.tasks.List(filter...)
	// Strip bulky results from the listing; task_result serves those.
	for i := range snaps {
		snaps[i].Result = nil
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].CreatedAt.After(snaps[j].CreatedAt) })

	return jsonResult(struct {
		Count int            `json:"count"`
		Tasks []TaskSnapshot `json:"tasks"`
	}{Count: len(snaps), Tasks: snaps})
}

// taskProgressTicker periodically bumps a task's message so pollers can see
// the task is still alive while the underlying operation produces no
// intermediate progress (git push, long shell commands). Returns a stop func.
func taskProgressTicker(task *Task, label string) func() {
	start := time.Now()
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(duration.TaskProgressPulse)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				snap := task.Snapshot()
				task.SetProgress(snap.Progress, snap.Total,
					fmt.Sprintf("%s (running %s)", label, time.Since(start).Round(time.Second)))
			}
		}
	}()
	return func() { close(stop) }
}
