package display

import (
	"bytes"
	"strings"
	"testing"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{"zero", 0, "0 B"},
		{"small bytes", 512, "512 B"},
		{"exactly 1 KiB", 1024, "1.0 KiB"},
		{"1.5 KiB", 1536, "1.5 KiB"},
		{"1 MiB", 1024 * 1024, "1.0 MiB"},
		{"1 GiB", 1024 * 1024 * 1024, "1.0 GiB"},
		{"700 MiB", 734003200, "700 MiB"},
		{"4.7 GiB", 5046586572, "4.7 GiB"},
		{"negative", -2048, "-2.0 KiB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatBytes(tt.bytes); got != tt.want {
				t.Errorf("FormatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestFormatBytesWithSign(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{"positive", 1024 * 1024, "+ 1.0 MiB"},
		{"negative", -1024 * 1024, "- 1.0 MiB"},
		{"zero", 0, "0 B"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatBytesWithSign(tt.bytes); got != tt.want {
				t.Errorf("FormatBytesWithSign(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestFormatBitrateLabel(t *testing.T) {
	tests := []struct {
		bps  int64
		want string
	}{
		{600_000, "600 kbps"},
		{999_999, "999 kbps"},
		{4_580_000, "4.6 Mbps"},
	}
	for _, tt := range tests {
		if got := FormatBitrateLabel(tt.bps); got != tt.want {
			t.Errorf("FormatBitrateLabel(%d) = %q, want %q", tt.bps, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0:00"},
		{9.6, "0:10"},
		{1800, "30:00"},
		{3723, "1:02:03"},
		{-5, "0:00"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.seconds); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestRenderResults(t *testing.T) {
	if RenderResults(nil) != "" {
		t.Error("no rows should render nothing")
	}
	out := RenderResults([]ResultRow{
		{Input: "rain.mov", Output: "asmr_rain.mp4", Status: "ok", Duration: 1800, Size: 1 << 30},
		{Input: "broken.mov", Status: "failed", Detail: "probe broken.mov: no video stream"},
	})
	for _, want := range []string{"Input", "asmr_rain.mp4", "30:00", "1.0 GiB", "failed", "no video stream"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "INPUT") {
		t.Errorf("headers should keep their case:\n%s", out)
	}
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	if !strings.Contains(buf.String(), "|_|") {
		t.Errorf("banner not written: %q", buf.String())
	}
}

func TestRenderTable_PadsShortRows(t *testing.T) {
	out := RenderTable([]string{"A", "B", "C"}, [][]string{{"1"}, {"2", "3", "4"}}, []Align{AlignRight})
	if !strings.Contains(out, "4") || !strings.Contains(out, "A") {
		t.Errorf("unexpected table:\n%s", out)
	}
	if RenderTable(nil, nil, nil) != "" {
		t.Error("no headers should render nothing")
	}
}
