package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/natefinch/atomic"
	"github.com/san-kum/ctrlsim/internal/dynamo"
)

var baseColumns = []string{"time", "measured", "setpoint", "actuation", "mode", "kp", "ki", "kd", "p", "i", "d"}

// WriteCSV writes one row per sample. Plant fields follow the common columns,
// named after the first sample; terminal and reason come last.
func WriteCSV(w io.Writer, samples []dynamo.Snapshot) error {
	cw := csv.NewWriter(w)

	var fields []string
	if len(samples) > 0 {
		for _, f := range samples[0].Fields {
			fields = append(fields, f.Name)
		}
	}

	header := append(append(append([]string{}, baseColumns...), fields...), "terminal", "reason")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, s := range samples {
		row := []string{
			ff(s.Time), ff(s.Measured), ff(s.Setpoint), ff(s.Actuation), s.Mode.String(),
			ff(s.Gains.Kp), ff(s.Gains.Ki), ff(s.Gains.Kd),
			ff(s.Terms.P), ff(s.Terms.I), ff(s.Terms.D),
		}
		for _, name := range fields {
			v, _ := s.Value(name)
			row = append(row, ff(v))
		}
		row = append(row, strconv.FormatBool(s.Terminal), s.Reason)
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// SaveCSV replaces path atomically, so a reader never sees a partial file.
func SaveCSV(path string, samples []dynamo.Snapshot) error {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, samples); err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	return atomic.WriteFile(path, &buf)
}

func ff(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
