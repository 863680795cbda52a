package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/matzehuels/leafshift/pkg/convert"
	"github.com/matzehuels/leafshift/pkg/mlc"
)

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	return &buf
}

func TestPrintStats(t *testing.T) {
	tests := []struct {
		name                 string
		beams, cps, warnings int
		cached               bool
		want                 []string
		notWant              []string
	}{
		{"fresh", 1, 3, 0, false, []string{"1 beam ·", "3 control points", "fresh"}, []string{"warning", "cached"}},
		{"cached with warnings", 2, 1, 1, true, []string{"2 beams", "1 control point", "1 warning", "cached"}, []string{"fresh"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureStdout(t)
			printStats(tt.beams, tt.cps, tt.warnings, tt.cached)
			for _, w := range tt.want {
				if !strings.Contains(out.String(), w) {
					t.Errorf("printStats output %q lacks %q", out.String(), w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(out.String(), w) {
					t.Errorf("printStats output %q contains %q", out.String(), w)
				}
			}
		})
	}
}

func TestDirectionName(t *testing.T) {
	got := directionName(convert.Direction{Source: mlc.HD, Target: mlc.Millennium})
	if !strings.Contains(got, "HD") || !strings.Contains(got, "Millennium") {
		t.Errorf("directionName = %q", got)
	}
	if strings.Index(got, "HD") > strings.Index(got, "Millennium") {
		t.Errorf("directionName = %q, want source first", got)
	}
}

func TestStatusLines(t *testing.T) {
	out := captureStdout(t)
	printSuccess("saved %d", 2)
	printWarning("careful")
	printFile("/tmp/RP_AdaptM2HD.dcm")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines: %q", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[0], "✓") || !strings.Contains(lines[0], "saved 2") {
		t.Errorf("success line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "!") {
		t.Errorf("warning line = %q", lines[1])
	}
	if !strings.Contains(lines[2], "/tmp/RP_AdaptM2HD.dcm") {
		t.Errorf("file line = %q", lines[2])
	}
}
