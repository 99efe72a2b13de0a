// Package stats samples process resource usage while tiles are generated.
package stats

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/process"
)

type Sample struct {
	Elapsed      time.Duration
	HeapAlloc    uint64
	Sys          uint64
	RSS          uint64
	NumGC        uint32
	CPUPercent   float64
	SystemCPU    float64
	NumGoroutine int
}

// Phase is a named section of the run, e.g. reading the extract.
type Phase struct {
	Name     string
	Duration time.Duration
}

type Summary struct {
	PeakHeapAlloc  uint64
	PeakSys        uint64
	PeakRSS        uint64
	PeakCPUPercent float64
	AvgCPUPercent  float64
	PeakGoroutines int
	TotalGCCycles  uint32
}

type Report struct {
	Start   time.Time
	End     time.Time
	Phases  []Phase
	Samples []Sample
	Summary Summary
}

type Collector struct {
	mu         sync.Mutex
	report     Report
	phaseStart time.Time

	interval time.Duration
	proc     *process.Process
	stop     chan struct{}
	done     chan struct{}
}

func NewCollector(interval time.Duration) (*Collector, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("failed to get process info: %w", err)
	}

	return &Collector{
		interval: interval,
		proc:     proc,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

func (c *Collector) Start() {
	now := time.Now()
	c.report.Start = now
	c.phaseStart = now

	go c.collect()
}

func (c *Collector) collect() {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.sample()
	for {
		select {
		case <-c.stop:
			c.sample()
			return
		case <-ticker.C:
			c.sample()
		}
	}
}

func (c *Collector) sample() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	s := Sample{
		Elapsed:      time.Since(c.report.Start),
		HeapAlloc:    mem.HeapAlloc,
		Sys:          mem.Sys,
		NumGC:        mem.NumGC,
		NumGoroutine: runtime.NumGoroutine(),
	}
	if info, err := c.proc.MemoryInfo(); err == nil && info != nil {
		s.RSS = info.RSS
	}
	if pct, err := c.proc.CPUPercent(); err == nil {
		s.CPUPercent = pct
	}
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		s.SystemCPU = pct[0]
	}

	c.mu.Lock()
	c.report.Samples = append(c.report.Samples, s)
	c.mu.Unlock()
}

// Mark ends the current phase under name and starts the next one.
func (c *Collector) Mark(name string) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.report.Phases = append(c.report.Phases, Phase{Name: name, Duration: now.Sub(c.phaseStart)})
	c.phaseStart = now
}

func (c *Collector) Stop() Report {
	close(c.stop)
	<-c.done

	c.mu.Lock()
	defer c.mu.Unlock()

	c.report.End = time.Now()
	c.report.Summary = summarize(c.report.Samples)
	return c.report
}

func summarize(samples []Sample) Summary {
	var s Summary
	if len(samples) == 0 {
		return s
	}

	var totalCPU float64
	for _, p := range samples {
		s.PeakHeapAlloc = max(s.PeakHeapAlloc, p.HeapAlloc)
		s.PeakSys = max(s.PeakSys, p.Sys)
		s.PeakRSS = max(s.PeakRSS, p.RSS)
		s.PeakCPUPercent = max(s.PeakCPUPercent, p.CPUPercent)
		s.PeakGoroutines = max(s.PeakGoroutines, p.NumGoroutine)
		s.TotalGCCycles = max(s.TotalGCCycles, p.NumGC)
		totalCPU += p.CPUPercent
	}
	s.AvgCPUPercent = totalCPU / float64(len(samples))
	return s
}

// String formats the report as plain text.
func (r Report) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "started:   %s\n", r.Start.Format(time.RFC3339))
	fmt.Fprintf(&sb, "finished:  %s\n", r.End.Format(time.RFC3339))
	fmt.Fprintf(&sb, "duration:  %s\n\n", r.End.Sub(r.Start).Round(time.Millisecond))

	if len(r.Phases) > 0 {
		sb.WriteString("phases:\n")
		for _, p := range r.Phases {
			fmt.Fprintf(&sb, "  %-20s %s\n", p.Name, p.Duration.Round(time.Millisecond))
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "peak heap:       %s\n", humanize.IBytes(r.Summary.PeakHeapAlloc))
	fmt.Fprintf(&sb, "peak sys:        %s\n", humanize.IBytes(r.Summary.PeakSys))
	fmt.Fprintf(&sb, "peak rss:        %s\n", humanize.IBytes(r.Summary.PeakRSS))
	fmt.Fprintf(&sb, "peak cpu:        %.1f%%\n", r.Summary.PeakCPUPercent)
	fmt.Fprintf(&sb, "avg cpu:         %.1f%%\n", r.Summary.AvgCPUPercent)
	fmt.Fprintf(&sb, "peak goroutines: %d\n", r.Summary.PeakGoroutines)
	fmt.Fprintf(&sb, "gc cycles:       %d\n", r.Summary.TotalGCCycles)
	fmt.Fprintf(&sb, "samples:         %d\n\n", len(r.Samples))

	fmt.Fprintf(&sb, "%-10s %-12s %-12s %-8s %-10s\n", "elapsed", "heap", "rss", "cpu %", "goroutines")

	// at most 100 rows, evenly spread over the run
	const maxRows = 100
	step := 1
	if len(r.Samples) > maxRows {
		step = (len(r.Samples) + maxRows - 1) / maxRows
	}
	for i := 0; i < len(r.Samples); i += step {
		s := r.Samples[i]
		fmt.Fprintf(&sb, "%-10s %-12s %-12s %-8.1f %-10d\n",
			s.Elapsed.Round(time.Second),
			humanize.IBytes(s.HeapAlloc),
			humanize.IBytes(s.RSS),
			s.CPUPercent,
			s.NumGoroutine,
		)
	}

	return sb.String()
}

func (r Report) SaveToFile(filename string) error {
	if err := os.WriteFile(filename, []byte(r.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write stats file: %w", err)
	}
	return nil
}
