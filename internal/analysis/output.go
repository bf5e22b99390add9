package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fieldcut/fieldcut/internal/errors"
	"github.com/fieldcut/fieldcut/internal/segment"
)

// WriteSummary prints the final segment batch to w as an aligned table or,
// with format "csv", in the same shape as the timestamps file.
func WriteSummary(w io.Writer, segments []segment.Segment, format string) error {
	if strings.EqualFold(format, "csv") {
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"id", "start_sec", "end_sec", "duration_sec", "detector", "score"}); err != nil {
			return err
		}
		for i, seg := range segments {
			if err := cw.Write(timestampRow(i, seg)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	}

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTART\tEND\tDURATION\tDETECTOR\tSCORE")
	for i, seg := range segments {
		fmt.Fprintf(tw, "%d\t%.3f\t%.3f\t%.3f\t%s\t%.3f\n",
			i, seg.Start, seg.End, seg.Duration(), seg.Detector, seg.Score)
	}
	return tw.Flush()
}

func timestampRow(id int, seg segment.Segment) []string {
	return []string{
		strconv.Itoa(id),
		strconv.FormatFloat(seg.Start, 'f', 3, 64),
		strconv.FormatFloat(seg.End, 'f', 3, 64),
		strconv.FormatFloat(seg.Duration(), 'f', 3, 64),
		seg.Detector,
		strconv.FormatFloat(seg.Score, 'f', 3, 64),
	}
}

// writeTimestampsCSV writes one row per segment with id, bounds, duration,
// detector tag and score.
func writeTimestampsCSV(segments []segment.Segment, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.New(err).
			Component("analysis").
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"id", "start_sec", "end_sec", "duration_sec", "detector", "score"}); err != nil {
		return err
	}
	for i, seg := range segments {
		if err := w.Write(timestampRow(i, seg)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// writeAudacityLabels writes a tab-separated Audacity label track, one label
// per segment.
func writeAudacityLabels(segments []segment.Segment, path string) error {
	var b strings.Builder
	for i, seg := range segments {
		label := fmt.Sprintf("sample_%03d %s", i, seg.Detector)
		fmt.Fprintf(&b, "%.3f\t%.3f\t%s\n", seg.Start, seg.End, label)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return errors.New(err).
			Component("analysis").
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}
	return nil
}

// writeReaperRegions writes a REAPER region import CSV.
func writeReaperRegions(segments []segment.Segment, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.New(err).
			Component("analysis").
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"Name", "Start", "End", "Length"}); err != nil {
		return err
	}
	for i, seg := range segments {
		row := []string{
			fmt.Sprintf("sample_%03d %s", i, seg.Detector),
			strconv.FormatFloat(seg.Start, 'f', 6, 64),
			strconv.FormatFloat(seg.End, 'f', 6, 64),
			strconv.FormatFloat(seg.Duration(), 'f', 6, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// outputBase returns the per-file output directory, creating it on demand.
func outputBase(outputDir, audioPath string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	dir := filepath.Join(outputDir, base)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.New(err).
			Component("analysis").
			Category(errors.CategoryFileIO).
			FileContext(dir, 0).
			Build()
	}
	return dir, nil
}
