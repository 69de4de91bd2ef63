package ukf

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// GroundTruthState is the true kinematic state attached to a logged measurement.
type GroundTruthState struct {
	Px, Py, Vx, Vy float64
	// Yaw and YawRate are only available in extended logs.
	Yaw, YawRate float64
	HasYaw       bool
}

// LogEntry is one line of a sensor log.
type LogEntry struct {
	Measurement
	Truth *GroundTruthState // nil when the log has no ground truth columns
}

// ReadSensorLog parses a whitespace separated sensor log of lines
//
//	L px py timestamp [gt_px gt_py gt_vx gt_vy [gt_yaw gt_yawrate]]
//	R rho phi rho_dot timestamp [gt_px gt_py gt_vx gt_vy [gt_yaw gt_yawrate]]
//
// Empty lines and lines starting with '#' are skipped.
func ReadSensorLog(r io.Reader) ([]LogEntry, error) {
	var entries []LogEntry
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entry, err := parseLogLine(strings.Fields(line))
		if err != nil {
			return nil, fmt.Errorf("sensor log line %d: %w", lineNo, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading sensor log: %w", err)
	}
	return entries, nil
}

func parseLogLine(fields []string) (LogEntry, error) {
	kind, err := ParseSensorKind(fields[0])
	if err != nil {
		return LogEntry{}, err
	}
	dim := kind.Dim()
	if len(fields) < dim+2 {
		return LogEntry{}, fmt.Errorf("%w: %s line has %d fields, needs at least %d", ErrMeasurementSize, kind, len(fields), dim+2)
	}

	raw, err := parseFloats(fields[1 : dim+1])
	if err != nil {
		return LogEntry{}, err
	}
	ts, err := strconv.ParseInt(fields[dim+1], 10, 64)
	if err != nil {
		return LogEntry{}, fmt.Errorf("invalid timestamp %q: %w", fields[dim+1], err)
	}
	entry := LogEntry{Measurement: Measurement{Kind: kind, Timestamp: ts, Raw: raw}}

	rest := fields[dim+2:]
	switch {
	case len(rest) == 0:
		return entry, nil
	case len(rest) != 4 && len(rest) != 6:
		return LogEntry{}, fmt.Errorf("ground truth needs 4 or 6 fields, got %d", len(rest))
	}
	gt, err := parseFloats(rest)
	if err != nil {
		return LogEntry{}, err
	}
	truth := &GroundTruthState{Px: gt[0], Py: gt[1], Vx: gt[2], Vy: gt[3]}
	if len(gt) == 6 {
		truth.Yaw, truth.YawRate, truth.HasYaw = gt[4], gt[5], true
	}
	entry.Truth = truth
	return entry, nil
}

func parseFloats(fields []string) ([]float64, error) {
	vals := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", f, err)
		}
		vals[i] = v
	}
	return vals, nil
}

// WriteSensorLog writes entries in the format read by ReadSensorLog.
func WriteSensorLog(w io.Writer, entries []LogEntry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		fields := []string{"R"}
		if e.Kind == Lidar {
			fields[0] = "L"
		}
		for _, v := range e.Raw {
			fields = append(fields, strconv.FormatFloat(v, 'e', 6, 64))
		}
		fields = append(fields, strconv.FormatInt(e.Timestamp, 10))
		if t := e.Truth; t != nil {
			gt := []float64{t.Px, t.Py, t.Vx, t.Vy}
			if t.HasYaw {
				gt = append(gt, t.Yaw, t.YawRate)
			}
			for _, v := range gt {
				fields = append(fields, strconv.FormatFloat(v, 'e', 6, 64))
			}
		}
		if _, err := bw.WriteString(strings.Join(fields, "\t") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
