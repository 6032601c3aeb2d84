package emulator

import (
	"testing"
	"time"
)

func TestParseIperfCSV(t *testing.T) {
	csv := `
20260829120001,10.0.0.1,53722,10.0.0.2,5001,3,0.0-1.0,250000,2000000
20260829120002,10.0.0.1,53722,10.0.0.2,5001,3,1.0-2.0,250000,2000000
20260829120003,10.0.0.1,53722,10.0.0.2,5001,3,2.0-3.0,250000,2000000
20260829120003,10.0.0.1,53722,10.0.0.2,5001,3,0.0-3.0,750000,2000000
20260829120003,10.0.0.1,53722,10.0.0.2,5001,3,0.0-3.0,742500,1980000,0.015,6,636,0.943,0
`
	start := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	stream := StreamSpec{ID: "stream-h1-h2-abc123", StartedAt: start}

	stats, err := parseIperfCSV(stream, []byte(csv))
	if err != nil {
		t.Fatalf("parseIperfCSV() unexpected error: %v", err)
	}

	if stats.SentBytes != 750000 {
		t.Errorf("SentBytes = %d, want 750000", stats.SentBytes)
	}
	if stats.ReceivedBytes != 742500 {
		t.Errorf("ReceivedBytes = %d, want 742500", stats.ReceivedBytes)
	}
	if stats.LossPct != 0.943 {
		t.Errorf("LossPct = %v, want 0.943", stats.LossPct)
	}
	if len(stats.Samples) != 3 {
		t.Fatalf("Samples = %d, want 3", len(stats.Samples))
	}
	if !stats.Samples[1].Start.Equal(start.Add(1 * time.Second)) {
		t.Errorf("second sample start = %v, want %v", stats.Samples[1].Start, start.Add(1*time.Second))
	}
	if stats.Samples[2].Bytes != 250000 {
		t.Errorf("third sample bytes = %d, want 250000", stats.Samples[2].Bytes)
	}
}

func TestParseIperfCSVWithoutServerReport(t *testing.T) {
	csv := `
20260829120001,10.0.0.1,53722,10.0.0.2,5001,3,0.0-1.0,250000,2000000
20260829120002,10.0.0.1,53722,10.0.0.2,5001,3,1.0-2.0,250000,2000000
`
	stats, err := parseIperfCSV(StreamSpec{ID: "s", StartedAt: time.Now()}, []byte(csv))
	if err != nil {
		t.Fatalf("parseIperfCSV() unexpected error: %v", err)
	}
	if stats.SentBytes != 500000 {
		t.Errorf("SentBytes = %d, want 500000", stats.SentBytes)
	}
	// no server report means no loss figure, assume everything arrived
	if stats.ReceivedBytes != 500000 {
		t.Errorf("ReceivedBytes = %d, want 500000", stats.ReceivedBytes)
	}
}

func TestParseIperfCSVDerivesZeroedLossField(t *testing.T) {
	// some iperf builds report bytes correctly but leave the loss field at 0
	csv := `
20260829120001,10.0.0.1,53722,10.0.0.2,5001,3,0.0-1.0,250000,2000000
20260829120002,10.0.0.1,53722,10.0.0.2,5001,3,1.0-2.0,250000,2000000
20260829120002,10.0.0.1,53722,10.0.0.2,5001,3,0.0-2.0,500000,2000000
20260829120002,10.0.0.1,53722,10.0.0.2,5001,3,0.0-2.0,375000,1500000,0.015,0,340,0.0,0
`
	stats, err := parseIperfCSV(StreamSpec{ID: "s", StartedAt: time.Now()}, []byte(csv))
	if err != nil {
		t.Fatalf("parseIperfCSV() unexpected error: %v", err)
	}
	if stats.ReceivedBytes != 375000 {
		t.Fatalf("ReceivedBytes = %d, want 375000", stats.ReceivedBytes)
	}
	if stats.LossPct != 25 {
		t.Errorf("LossPct = %v, want 25 derived from byte counts", stats.LossPct)
	}
}

func TestParseIperfCSVMalformed(t *testing.T) {
	csv := `20260829120001,10.0.0.1,53722,10.0.0.2,5001,3,zero-to-one,250000,2000000`
	if _, err := parseIperfCSV(StreamSpec{ID: "s"}, []byte(csv)); err == nil {
		t.Fatal("parseIperfCSV() expected error for malformed interval")
	}
}

func TestIfaceName(t *testing.T) {
	tests := []struct {
		name   string
		linkID string
		side   string
		want   string
	}{
		{"Short id kept verbatim", "s1-s2", "a", "s1-s2-a"},
		{"Host link", "h1-s1", "b", "h1-s1-b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IfaceName(tt.linkID, tt.side); got != tt.want {
				t.Errorf("IfaceName() = %q, want %q", got, tt.want)
			}
		})
	}

	long := IfaceName("very-long-parallel-link-identifier", "a")
	if len(long) > 15 {
		t.Errorf("IfaceName() = %q exceeds 15 chars", long)
	}
}
