package stats

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCollector(t *testing.T) {
	c, err := NewCollector(time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	c.Start()
	time.Sleep(10 * time.Millisecond)
	c.Mark("parse")
	c.Mark("tiles")
	report := c.Stop()

	if len(report.Samples) < 2 {
		t.Fatalf("expected at least the first and last sample; got %d", len(report.Samples))
	}
	if len(report.Phases) != 2 || report.Phases[0].Name != "parse" || report.Phases[0].Duration <= 0 {
		t.Fatalf("unexpected phases %+v", report.Phases)
	}
	if report.Summary.PeakHeapAlloc == 0 || report.Summary.PeakGoroutines == 0 {
		t.Fatalf("expected a summary; got %+v", report.Summary)
	}

	path := filepath.Join(t.TempDir(), "stats.txt")
	if err := report.SaveToFile(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "parse") || !strings.Contains(string(data), "peak heap") {
		t.Fatalf("unexpected report:\n%s", data)
	}
}

func TestSummarize(t *testing.T) {
	s := summarize([]Sample{
		{HeapAlloc: 10, CPUPercent: 50, NumGoroutine: 3, NumGC: 1},
		{HeapAlloc: 30, CPUPercent: 100, NumGoroutine: 2, NumGC: 4},
	})
	if s.PeakHeapAlloc != 30 || s.AvgCPUPercent != 75 || s.PeakGoroutines != 3 || s.TotalGCCycles != 4 {
		t.Fatalf("unexpected summary %+v", s)
	}

	if summarize(nil) != (Summary{}) {
		t.Fatalf("expected an empty summary")
	}
}
