package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestTaskLifecycle(t *testing.T) {
	tm := NewTaskManager()
	defer tm.Stop()

	task, ctx, err := tm.Create(context.Background(), "run_command")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(task.ID, "task_") || len(task.ID) != len("task_")+16 {
		t.Errorf("task ID %q has unexpected format", task.ID)
	}
	if got := tm.ActiveCount(); got != 1 {
		t.Errorf("ActiveCount = %d, want 1", got)
	}

	task.SetProgress(50, 100, "halfway")
	snap := task.Snapshot()
	if snap.Progress != 50 || snap.Message != "halfway" {
		t.Errorf("snapshot after SetProgress: %+v", snap)
	}
	if snap.Result != nil {
		t.Error("non-completed snapshot should not expose a result")
	}

	task.Complete(json.RawMessage(`{"ok":true}`))
	snap = task.Snapshot()
	if snap.Status != TaskStatusCompleted {
		t.Errorf("status = %q, want completed", snap.Status)
	}
	if string(snap.Result) != `{"ok":true}` {
		t.Errorf("result = %s", snap.Result)
	}
	if ctx.Err() == nil {
		t.Error("task context should be cancelled after Complete")
	}
	if got := tm.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount after completion = %d, want 0", got)
	}
}

func TestTaskTerminalStateIsSticky(t *testing.T) {
	tm := NewTaskManager()
	defer tm.Stop()

	task, _, err := tm.Create(context.Background(), "git_push")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	task.Cancel()
	task.Complete(json.RawMessage(`"late"`))
	task.Fail("late failure")
	task.SetProgress(99, 100, "late progress")

	snap := task.Snapshot()
	if snap.Status != TaskStatusCancelled {
		t.Errorf("status = %q, want cancelled to stick", snap.Status)
	}
	if snap.Message != "cancelled by user" {
		t.Errorf("message = %q, terminal message was overwritten", snap.Message)
	}
}

func TestTaskWaitForReturnsOnCompletion(t *testing.T) {
	tm := NewTaskManager()
	defer tm.Stop()

	task, _, err := tm.Create(context.Background(), "find_large_files")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		task.Complete(nil)
	}()

	start := time.Now()
	task.WaitFor(context.Background(), 30)
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("WaitFor blocked %v despite early completion", elapsed)
	}
	if got := task.Snapshot().Status; got != TaskStatusCompleted {
		t.Errorf("status = %q, want completed", got)
	}
}

func TestTaskWaitForHonorsContext(t *testing.T) {
	tm := NewTaskManager()
	defer tm.Stop()

	task, _, err := tm.Create(context.Background(), "run_command")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer task.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	task.WaitFor(ctx, 30)
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("WaitFor ignored context cancellation, blocked %v", elapsed)
	}
}

func TestTaskListFilter(t *testing.T) {
	tm := NewTaskManager()
	defer tm.Stop()

	running, _, err := tm.Create(context.Background(), "run_command")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer running.Cancel()

	done, _, err := tm.Create(context.Background(), "git_pull")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	done.Complete(nil)

	all := tm.List()
	if len(all) != 2 {
		t.Fatalf("List() = %d tasks, want 2", len(all))
	}

	completed := tm.List(TaskStatusCompleted)
	if len(completed) != 1 || completed[0].ID != done.ID {
		t.Errorf("List(completed) = %+v", completed)
	}

	if tm.Get(running.ID) == nil {
		t.Error("Get lost a known task")
	}
	if tm.Get("task_unknown") != nil {
		t.Error("Get returned a task for an unknown ID")
	}
}

func TestGenerateTaskIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id, err := generateTaskID()
		if err != nil {
			t.Fatalf("generateTaskID: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate task ID %s", id)
		}
		seen[id] = true
	}
}

func TestManagerStopCancelsTasks(t *testing.T) {
	tm := NewTaskManager()

	task, ctx, err := tm.Create(context.Background(), "run_command")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	tm.Stop()

	if ctx.Err() == nil {
		t.Error("Stop should cancel running task contexts")
	}
	if got := task.Snapshot().Status; got != TaskStatusCancelled {
		t.Errorf("status after Stop = %q, want cancelled", got)
	}
}
