package sysinfo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolhost/toolhost/pkg/sysinfo"
)

func TestGetOverview(t *testing.T) {
	ov, err := sysinfo.GetOverview(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, ov.Hostname)
	assert.NotEmpty(t, ov.OS)
	assert.NotEmpty(t, ov.MemoryTotal)
	assert.Greater(t, ov.CPUCores, 0)
}

func TestGetMemory(t *testing.T) {
	m, err := sysinfo.GetMemory(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, m.Total)
	assert.GreaterOrEqual(t, m.UsedPercent, 0.0)
	assert.LessOrEqual(t, m.UsedPercent, 100.0)
}

func TestGetUptime(t *testing.T) {
	u, err := sysinfo.GetUptime(context.Background())
	require.NoError(t, err)
	assert.Greater(t, u.UptimeSecs, uint64(0))
	assert.NotEmpty(t, u.BootTime)
}

func TestGetProcessesRejectsBadSortKey(t *testing.T) {
	_, err := sysinfo.GetProcesses(context.Background(), 5, "priority")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sort_by")
}

func TestGetProcessesCapsCount(t *testing.T) {
	procs, err := sysinfo.GetProcesses(context.Background(), 3, sysinfo.SortPID)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(procs), 3)
	for i := 1; i < len(procs); i++ {
		assert.LessOrEqual(t, procs[i-1].PID, procs[i].PID)
	}
}

func TestSortProcesses(t *testing.T) {
	infos := []sysinfo.ProcessInfo{
		{PID: 3, Name: "zsh", CPUPercent: 1.0, MemoryPercent: 9.0},
		{PID: 1, Name: "init", CPUPercent: 5.0, MemoryPercent: 1.0},
		{PID: 2, Name: "bash", CPUPercent: 3.0, MemoryPercent: 4.0},
	}

	sysinfo.SortProcesses(infos, sysinfo.SortCPU)
	assert.Equal(t, int32(1), infos[0].PID)

	sysinfo.SortProcesses(infos, sysinfo.SortMemory)
	assert.Equal(t, int32(3), infos[0].PID)

	sysinfo.SortProcesses(infos, sysinfo.SortName)
	assert.Equal(t, "bash", infos[0].Name)

	sysinfo.SortProcesses(infos, sysinfo.SortPID)
	assert.Equal(t, int32(1), infos[0].PID)
}

func TestGetServiceValidatesName(t *testing.T) {
	_, err := sysinfo.GetService(context.Background(), "bad name; rm")
	require.Error(t, err)

	_, err = sysinfo.GetService(context.Background(), "")
	require.Error(t, err)
}
