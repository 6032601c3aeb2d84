package emulator

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/sdnlab/harness-go/pkg/math"
)

// parseIperfCSV parses `iperf -y C` report output of a UDP client. Interval
// rows become samples, the widest row is the client total, and the trailing
// server report row (the one carrying jitter/loss fields) provides received
// bytes and the loss rate.
func parseIperfCSV(stream StreamSpec, data []byte) (*TrafficStats, error) {
	stats := &TrafficStats{StreamID: stream.ID}

	type row struct {
		start, end float64
		bytes      int64
	}
	var rows []row

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) < 9 {
			continue
		}

		start, end, err := parseInterval(fields[6])
		if err != nil {
			return nil, errors.Errorf("malformed iperf interval in stream '%s': %v", stream.ID, err)
		}
		bytes, err := strconv.ParseInt(fields[7], 10, 64)
		if err != nil {
			return nil, errors.Errorf("malformed iperf byte count in stream '%s': %v", stream.ID, err)
		}

		if len(fields) >= 13 {
			// server report row
			stats.ReceivedBytes = bytes
			if loss, err := strconv.ParseFloat(fields[12], 64); err == nil {
				stats.LossPct = loss
			}
			continue
		}
		rows = append(rows, row{start: start, end: end, bytes: bytes})
	}

	var maxEnd float64
	for _, r := range rows {
		if r.end > maxEnd {
			maxEnd = r.end
		}
	}

	for _, r := range rows {
		if len(rows) > 1 && r.start == 0 && r.end == maxEnd && r.end-r.start > 1.5 {
			// client total row
			stats.SentBytes = r.bytes
			continue
		}
		stats.Samples = append(stats.Samples, IntervalSample{
			Start: stream.StartedAt.Add(time.Duration(r.start * float64(time.Second))),
			End:   stream.StartedAt.Add(time.Duration(r.end * float64(time.Second))),
			Bytes: r.bytes,
		})
	}

	if stats.SentBytes == 0 {
		for _, s := range stats.Samples {
			stats.SentBytes += s.Bytes
		}
	}
	if stats.ReceivedBytes == 0 && stats.LossPct == 0 {
		stats.ReceivedBytes = stats.SentBytes
	}
	if stats.LossPct == 0 {
		// older iperf builds leave the loss field at zero, derive it
		stats.LossPct = math.LossPct(stats.SentBytes, stats.ReceivedBytes)
	}

	return stats, nil
}

func parseInterval(s string) (float64, float64, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, errors.Errorf("interval '%s' is not of the form a-b", s)
	}
	start, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, err
	}
	end, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}
