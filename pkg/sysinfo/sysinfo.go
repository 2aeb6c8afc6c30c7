// Package sysinfo collects host metrics for the system toolset. All
// readings come from gopsutil so the same tools work across Linux,
// macOS, and Windows; service queries are the one Linux-only exception.
package sysinfo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/toolhost/toolhost/pkg/defaults"
	"github.com/toolhost/toolhost/pkg/duration"
)

// Overview is a one-call summary of the host.
type Overview struct {
	Hostname        string  `json:"hostname"`
	OS              string  `json:"os"`
	Platform        string  `json:"platform"`
	PlatformVersion string  `json:"platform_version"`
	KernelVersion   string  `json:"kernel_version"`
	Arch            string  `json:"arch"`
	Uptime          string  `json:"uptime"`
	CPUCores        int     `json:"cpu_cores"`
	CPUPercent      float64 `json:"cpu_percent"`
	MemoryTotal     string  `json:"memory_total"`
	MemoryUsed      string  `json:"memory_used"`
	MemoryPercent   float64 `json:"memory_percent"`
	Processes       uint64  `json:"processes"`
	Load1           float64 `json:"load_1,omitempty"`
	Load5           float64 `json:"load_5,omitempty"`
	Load15          float64 `json:"load_15,omitempty"`
}

// GetOverview samples the host for the summary tool. CPU usage is
// averaged over a short sampling window.
func GetOverview(ctx context.Context) (*Overview, error) {
	hi, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading host info: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading memory: %w", err)
	}

	ov := &Overview{
		Hostname:        hi.Hostname,
		OS:              hi.OS,
		Platform:        hi.Platform,
		PlatformVersion: hi.PlatformVersion,
		KernelVersion:   hi.KernelVersion,
		Arch:            hi.KernelArch,
		Uptime:          (time.Duration(hi.Uptime) * time.Second).String(),
		MemoryTotal:     humanize.IBytes(vm.Total),
		MemoryUsed:      humanize.IBytes(vm.Used),
		MemoryPercent:   round2(vm.UsedPercent),
		Processes:       hi.Procs,
	}

	if cores, err := cpu.CountsWithContext(ctx, true); err == nil {
		ov.CPUCores = cores
	}
	if pct, err := cpu.PercentWithContext(ctx, duration.SysinfoSample, false); err == nil && len(pct) > 0 {
		ov.CPUPercent = round2(pct[0])
	}
	// Load averages are not available on Windows; skip silently.
	if avg, err := load.AvgWithContext(ctx); err == nil {
		ov.Load1 = round2(avg.Load1)
		ov.Load5 = round2(avg.Load5)
		ov.Load15 = round2(avg.Load15)
	}
	return ov, nil
}

// CPUDetail is the result of GetCPU.
type CPUDetail struct {
	Model          string    `json:"model"`
	PhysicalCores  int       `json:"physical_cores"`
	LogicalCores   int       `json:"logical_cores"`
	FrequencyMHz   float64   `json:"frequency_mhz"`
	TotalPercent   float64   `json:"total_percent"`
	PerCorePercent []float64 `json:"per_core_percent"`
}

// GetCPU returns CPU model information and a sampled usage reading.
func GetCPU(ctx context.Context) (*CPUDetail, error) {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading cpu info: %w", err)
	}

	d := &CPUDetail{}
	if len(infos) > 0 {
		d.Model = infos[0].ModelName
		d.FrequencyMHz = infos[0].Mhz
	}
	if n, err := cpu.CountsWithContext(ctx, false); err == nil {
		d.PhysicalCores = n
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		d.LogicalCores = n
	}
	if pct, err := cpu.PercentWithContext(ctx, duration.SysinfoSample, true); err == nil {
		for _, p := range pct {
			d.PerCorePercent = append(d.PerCorePercent, round2(p))
		}
	}
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		d.TotalPercent = round2(pct[0])
	}
	return d, nil
}

// MemoryDetail is the result of GetMemory.
type MemoryDetail struct {
	Total       string  `json:"total"`
	Available   string  `json:"available"`
	Used        string  `json:"used"`
	UsedPercent float64 `json:"used_percent"`
	Free        string  `json:"free"`
	SwapTotal   string  `json:"swap_total"`
	SwapUsed    string  `json:"swap_used"`
	SwapPercent float64 `json:"swap_percent"`
}

// GetMemory returns virtual memory and swap usage.
func GetMemory(ctx context.Context) (*MemoryDetail, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading memory: %w", err)
	}
	d := &MemoryDetail{
		Total:       humanize.IBytes(vm.Total),
		Available:   humanize.IBytes(vm.Available),
		Used:        humanize.IBytes(vm.Used),
		UsedPercent: round2(vm.UsedPercent),
		Free:        humanize.IBytes(vm.Free),
	}
	if sw, err := mem.SwapMemoryWithContext(ctx); err == nil {
		d.SwapTotal = humanize.IBytes(sw.Total)
		d.SwapUsed = humanize.IBytes(sw.Used)
		d.SwapPercent = round2(sw.UsedPercent)
	}
	return d, nil
}

// Partition describes one mounted filesystem.
type Partition struct {
	Device      string  `json:"device"`
	Mountpoint  string  `json:"mountpoint"`
	FSType      string  `json:"fstype"`
	Total       string  `json:"total"`
	Used        string  `json:"used"`
	Free        string  `json:"free"`
	UsedPercent float64 `json:"used_percent"`
}

// DiskIO is cumulative traffic for one block device.
type DiskIO struct {
	Device     string `json:"device"`
	ReadBytes  string `json:"read_bytes"`
	WriteBytes string `json:"write_bytes"`
	ReadCount  uint64 `json:"read_count"`
	WriteCount uint64 `json:"write_count"`
}

// DiskDetail is the result of GetDisks.
type DiskDetail struct {
	Partitions []Partition `json:"partitions"`
	IO         []DiskIO    `json:"io,omitempty"`
}

// GetDisks returns usage for every physical partition plus per-device
// IO counters. Virtual filesystems (proc, sysfs, overlay scratch
// mounts) are excluded.
func GetDisks(ctx context.Context) (*DiskDetail, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("reading partitions: %w", err)
	}

	detail := &DiskDetail{Partitions: make([]Partition, 0, len(parts))}
	for _, p := range parts {
		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			continue
		}
		detail.Partitions = append(detail.Partitions, Partition{
			Device:      p.Device,
			Mountpoint:  p.Mountpoint,
			FSType:      p.Fstype,
			Total:       humanize.IBytes(usage.Total),
			Used:        humanize.IBytes(usage.Used),
			Free:        humanize.IBytes(usage.Free),
			UsedPercent: round2(usage.UsedPercent),
		})
	}

	// IO counters are best-effort; containers often hide them.
	if counters, err := disk.IOCountersWithContext(ctx); err == nil {
		devices := make([]string, 0, len(counters))
		for name := range counters {
			devices = append(devices, name)
		}
		sort.Strings(devices)
		for _, name := range devices {
			io := counters[name]
			detail.IO = append(detail.IO, DiskIO{
				Device:     name,
				ReadBytes:  humanize.IBytes(io.ReadBytes),
				WriteBytes: humanize.IBytes(io.WriteBytes),
				ReadCount:  io.ReadCount,
				WriteCount: io.WriteCount,
			})
		}
	}
	return detail, nil
}

// ProcessInfo describes one process in a ProcessList result.
type ProcessInfo struct {
	PID           int32   `json:"pid"`
	Name          string  `json:"name"`
	Username      string  `json:"username,omitempty"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryRSS     string  `json:"memory_rss,omitempty"`
	Status        string  `json:"status,omitempty"`
}

// Process list sort keys.
const (
	SortCPU    = "cpu"
	SortMemory = "memory"
	SortPID    = "pid"
	SortName   = "name"
)

// GetProcesses returns the top count processes ordered by sortBy.
// A zero count uses the default; counts above the cap are clamped.
func GetProcesses(ctx context.Context, count int, sortBy string) ([]ProcessInfo, error) {
	if count <= 0 {
		count = defaults.ProcessListCount
	}
	if count > defaults.ProcessListMax {
		count = defaults.ProcessListMax
	}
	if sortBy == "" {
		sortBy = SortCPU
	}
	switch sortBy {
	case SortCPU, SortMemory, SortPID, SortName:
	default:
		return nil, fmt.Errorf("invalid sort_by %q (use cpu, memory, pid, or name)", sortBy)
	}

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}

	infos := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue // process exited mid-scan
		}
		pi := ProcessInfo{PID: p.Pid, Name: name}
		if cpuPct, err := p.CPUPercentWithContext(ctx); err == nil {
			pi.CPUPercent = round2(cpuPct)
		}
		if memPct, err := p.MemoryPercentWithContext(ctx); err == nil {
			pi.MemoryPercent = round2(float64(memPct))
		}
		if mi, err := p.MemoryInfoWithContext(ctx); err == nil && mi != nil {
			pi.MemoryRSS = humanize.IBytes(mi.RSS)
		}
		if user, err := p.UsernameWithContext(ctx); err == nil {
			pi.Username = user
		}
		if st, err := p.StatusWithContext(ctx); err == nil && len(st) > 0 {
			pi.Status = st[0]
		}
		infos = append(infos, pi)
	}

	SortProcesses(infos, sortBy)
	if len(infos) > count {
		infos = infos[:count]
	}
	return infos, nil
}

// SortProcesses orders infos in place by the given key. CPU and memory
// sort descending; pid and name ascending.
func SortProcesses(infos []ProcessInfo, sortBy string) {
	sort.SliceStable(infos, func(i, j int) bool {
		switch sortBy {
		case SortMemory:
			return infos[i].MemoryPercent > infos[j].MemoryPercent
		case SortPID:
			return infos[i].PID < infos[j].PID
		case SortName:
			return strings.ToLower(infos[i].Name) < strings.ToLower(infos[j].Name)
		default:
			return infos[i].CPUPercent > infos[j].CPUPercent
		}
	})
}

// Interface describes one network interface.
type Interface struct {
	Name      string   `json:"name"`
	MAC       string   `json:"mac,omitempty"`
	Addresses []string `json:"addresses"`
	Up        bool     `json:"up"`
	BytesSent string   `json:"bytes_sent,omitempty"`
	BytesRecv string   `json:"bytes_recv,omitempty"`
}

// NetworkDetail is the result of GetNetwork.
type NetworkDetail struct {
	Interfaces     []Interface `json:"interfaces"`
	TCPConnections int         `json:"tcp_connections"`
	UDPConnections int         `json:"udp_connections"`
}

// GetNetwork returns interface addresses, per-interface traffic
// counters, and active connection counts.
func GetNetwork(ctx context.Context) (*NetworkDetail, error) {
	ifaces, err := net.InterfacesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading interfaces: %w", err)
	}

	counters := map[string]net.IOCountersStat{}
	if ios, err := net.IOCountersWithContext(ctx, true); err == nil {
		for _, io := range ios {
			counters[io.Name] = io
		}
	}

	out := make([]Interface, 0, len(ifaces))
	for _, ifc := range ifaces {
		up := false
		for _, flag := range ifc.Flags {
			if flag == "up" {
				up = true
				break
			}
		}
		entry := Interface{Name: ifc.Name, MAC: ifc.HardwareAddr, Up: up}
		for _, addr := range ifc.Addrs {
			entry.Addresses = append(entry.Addresses, addr.Addr)
		}
		if io, ok := counters[ifc.Name]; ok {
			entry.BytesSent = humanize.IBytes(io.BytesSent)
			entry.BytesRecv = humanize.IBytes(io.BytesRecv)
		}
		out = append(out, entry)
	}

	detail := &NetworkDetail{Interfaces: out}
	// Connection enumeration needs elevated permissions on some hosts;
	// report zero rather than failing the whole tool.
	if conns, err := net.ConnectionsWithContext(ctx, "tcp"); err == nil {
		detail.TCPConnections = len(conns)
	}
	if conns, err := net.ConnectionsWithContext(ctx, "udp"); err == nil {
		detail.UDPConnections = len(conns)
	}
	return detail, nil
}

// UptimeDetail is the result of GetUptime.
type UptimeDetail struct {
	Uptime     string   `json:"uptime"`
	BootTime   string   `json:"boot_time"`
	BootedAgo  string   `json:"booted_ago"`
	UptimeSecs uint64   `json:"uptime_seconds"`
	Users      []string `json:"users,omitempty"`
}

// GetUptime returns how long the host has been up.
func GetUptime(ctx context.Context) (*UptimeDetail, error) {
	up, err := host.UptimeWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading uptime: %w", err)
	}
	boot, err := host.BootTimeWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading boot time: %w", err)
	}
	bootAt := time.Unix(int64(boot), 0)
	detail := &UptimeDetail{
		Uptime:     (time.Duration(up) * time.Second).String(),
		BootTime:   bootAt.Format(time.RFC3339),
		BootedAgo:  humanize.Time(bootAt),
		UptimeSecs: up,
	}
	// utmp may be absent in containers; skip silently.
	if users, err := host.UsersWithContext(ctx); err == nil {
		seen := map[string]bool{}
		for _, u := range users {
			if u.User != "" && !seen[u.User] {
				seen[u.User] = true
				detail.Users = append(detail.Users, u.User)
			}
		}
	}
	return detail, nil
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
