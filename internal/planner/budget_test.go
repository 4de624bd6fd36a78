package planner

import (
	"math"
	"slices"
	"testing"
)

const gib = int64(1024 * 1024 * 1024)

func TestComputeBudget_StaysUnderCap(t *testing.T) {
	tests := []struct {
		name     string
		seconds  float64
		audioBps int64
	}{
		{"thirty minutes", 1800, 192000},
		{"one hour", 3600, 192000},
		{"short clip", 45, 128000},
		{"fractional", 1234.567, 160000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ComputeBudget(tt.seconds, tt.audioBps, gib, 0.98, 600000)
			if b.Floored {
				t.Fatalf("unexpected floor for %v s", tt.seconds)
			}
			total := float64(b.VideoBitrate+tt.audioBps) * tt.seconds
			limit := float64(gib) * 8 * 0.98
			if total > limit {
				t.Errorf("(video+audio)*duration = %.0f bits, exceeds %.0f", total, limit)
			}
			if b.MaxRate != b.VideoBitrate || b.BufferSize != 2*b.VideoBitrate {
				t.Errorf("rate triple = %+v", b)
			}
		})
	}
}

func TestComputeBudget_ThirtyMinuteAmbient(t *testing.T) {
	b := ComputeBudget(1800, 192000, gib, 0.98, 600000)
	want := int64(math.Floor(float64(gib)*0.98*8/1800)) - 192000
	if b.VideoBitrate != want {
		t.Errorf("VideoBitrate = %d, want %d", b.VideoBitrate, want)
	}
}

func TestComputeBudget_Floor(t *testing.T) {
	// Ten hours in one GiB is far below 600 kbps.
	b := ComputeBudget(36000, 192000, gib, 0.98, 600000)
	if !b.Floored || b.VideoBitrate != 600000 {
		t.Errorf("budget = %+v, want floored at 600000", b)
	}
	if b.BufferSize != 1200000 {
		t.Errorf("BufferSize = %d, want 1200000", b.BufferSize)
	}
}

func TestComputeBudget_NonPositiveDuration(t *testing.T) {
	zero := ComputeBudget(0, 192000, gib, 0.98, 600000)
	one := ComputeBudget(1, 192000, gib, 0.98, 600000)
	neg := ComputeBudget(-3, 192000, gib, 0.98, 600000)
	if zero != one || neg != one {
		t.Errorf("zero=%+v neg=%+v, want same as one second %+v", zero, neg, one)
	}
}

func TestBudgetArgs(t *testing.T) {
	b := Budget{VideoBitrate: 4_580_123, MaxRate: 4_580_123, BufferSize: 9_160_246}
	want := []string{"-b:v", "4580k", "-maxrate", "4580k", "-bufsize", "9160k"}
	if got := b.Args(); !slices.Equal(got, want) {
		t.Errorf("Args() = %v, want %v", got, want)
	}
}

func TestEstimatedBytes(t *testing.T) {
	b := Budget{VideoBitrate: 808000}
	if got := b.EstimatedBytes(10, 192000); got != 1_250_000 {
		t.Errorf("EstimatedBytes = %d, want 1250000", got)
	}
	if got := b.EstimatedBytes(0, 192000); got != 0 {
		t.Errorf("EstimatedBytes(0) = %d", got)
	}
}

func TestParseBitrate(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"192k", 192000, false},
		{"192K", 192000, false},
		{"1.5M", 1500000, false},
		{"2m", 2000000, false},
		{"128000", 128000, false},
		{" 320k ", 320000, false},
		{"", 0, true},
		{"k", 0, true},
		{"-5k", 0, true},
		{"fast", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBitrate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBitrate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseBitrate(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
