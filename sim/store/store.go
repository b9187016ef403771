// Package store persists simulation tables as parquet partitions and reads them
// back. It sits outside the core: sim never touches the filesystem itself.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
	"golang.org/x/sync/errgroup"

	"github.com/mab-sim/mab-sim/sim"
)

// parallelism is the number of goroutines parquet-go uses per file.
const parallelism = 4

// maxConcurrentReads bounds how many partition files are open at once.
const maxConcurrentReads = 8

// outcomeRow is the on-disk layout of an Outcome.
type outcomeRow struct {
	ClientID int64 `parquet:"name=client_id, type=INT64"`
	ArmID    int64 `parquet:"name=arm_id, type=INT64"`
	Date     int32 `parquet:"name=date, type=INT32, convertedtype=DATE"`
	Clicked  int32 `parquet:"name=clicked, type=INT32"`
}

// markingRow is the on-disk layout of a Marking. Date is null for undated ledgers.
type markingRow struct {
	ClientID int64  `parquet:"name=client_id, type=INT64"`
	ArmID    int64  `parquet:"name=arm_id, type=INT64"`
	Date     *int32 `parquet:"name=date, type=INT32, convertedtype=DATE, repetitiontype=OPTIONAL"`
}

// daysSinceEpoch encodes a civil date as parquet DATE.
func daysSinceEpoch(t time.Time) int32 {
	return int32(sim.Day(t).Unix() / 86400)
}

// dateFromDays decodes a parquet DATE.
func dateFromDays(d int32) time.Time {
	return time.Unix(int64(d)*86400, 0).UTC()
}

// WriteOutcomes writes rows to a single parquet file at path, creating parent
// directories as needed.
func WriteOutcomes(path string, rows []sim.Outcome) error {
	out := make([]outcomeRow, len(rows))
	for i, r := range rows {
		out[i] = outcomeRow{
			ClientID: int64(r.ClientID),
			ArmID:    int64(r.ArmID),
			Date:     daysSinceEpoch(r.Date),
			Clicked:  int32(r.Clicked),
		}
	}
	return writeFile(path, new(outcomeRow), len(out), func(i int) interface{} { return out[i] })
}

// ReadOutcomes reads one parquet file written by WriteOutcomes.
func ReadOutcomes(path string) ([]sim.Outcome, error) {
	var rows []outcomeRow
	if err := readFile(path, new(outcomeRow), func(n int) interface{} {
		rows = make([]outcomeRow, n)
		return &rows
	}); err != nil {
		return nil, err
	}
	out := make([]sim.Outcome, len(rows))
	for i, r := range rows {
		out[i] = sim.Outcome{
			ClientID: sim.ClientID(r.ClientID),
			ArmID:    sim.ArmID(r.ArmID),
			Date:     dateFromDays(r.Date),
			Clicked:  int(r.Clicked),
		}
	}
	return out, nil
}

// WriteMarkings writes a marking ledger to path. An undated ledger is written with
// a null date column.
func WriteMarkings(path string, ledger *sim.MarkingLedger) error {
	markings := ledger.Rows()
	var date *int32
	if d, ok := ledger.Date(); ok {
		days := daysSinceEpoch(d)
		date = &days
	}
	out := make([]markingRow, len(markings))
	for i, m := range markings {
		out[i] = markingRow{ClientID: int64(m.ClientID), ArmID: int64(m.ArmID), Date: date}
	}
	return writeFile(path, new(markingRow), len(out), func(i int) interface{} { return out[i] })
}

// ReadMarkings rebuilds a marking ledger from a file written by WriteMarkings.
// The file must hold a single date (or none).
func ReadMarkings(path string) (*sim.MarkingLedger, error) {
	var rows []markingRow
	if err := readFile(path, new(markingRow), func(n int) interface{} {
		rows = make([]markingRow, n)
		return &rows
	}); err != nil {
		return nil, err
	}
	clients := make([]sim.ClientID, len(rows))
	arms := make([]sim.ArmID, len(rows))
	var date *time.Time
	for i, r := range rows {
		clients[i] = sim.ClientID(r.ClientID)
		arms[i] = sim.ArmID(r.ArmID)
		if r.Date == nil {
			continue
		}
		d := dateFromDays(*r.Date)
		if date == nil {
			date = &d
		} else if !date.Equal(d) {
			return nil, fmt.Errorf("reading markings %s: mixed dates %s and %s", path,
				date.Format(time.DateOnly), d.Format(time.DateOnly))
		}
	}
	return sim.NewMarkingLedger(clients, arms, date)
}

// ReadPartitions reads every outcome file matching the glob pattern and
// concatenates them in sorted path order. Files are read concurrently.
func ReadPartitions(pattern string) ([]sim.Outcome, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("matching partitions %q: %w", pattern, err)
	}
	sort.Strings(paths)

	parts := make([][]sim.Outcome, len(paths))
	var g errgroup.Group
	g.SetLimit(maxConcurrentReads)
	for i, p := range paths {
		g.Go(func() error {
			rows, err := ReadOutcomes(p)
			if err != nil {
				return err
			}
			parts[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, part := range parts {
		total += len(part)
	}
	out := make([]sim.Outcome, 0, total)
	for _, part := range parts {
		out = append(out, part...)
	}
	logrus.Debugf("read %d outcomes from %d partitions matching %s", total, len(paths), pattern)
	return out, nil
}

// RemoveDirectoryContents deletes everything inside dir, keeping dir itself.
// A missing directory is not an error.
func RemoveDirectoryContents(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("listing %s: %w", dir, err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("removing %s: %w", e.Name(), err)
		}
	}
	return nil
}

func writeFile(path string, schema interface{}, n int, row func(int) interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	return writeRows(fw, path, schema, n, row)
}

// writeRows writes n rows to fw and closes it. A close failure after a clean
// WriteStop is reported, since the footer may not have reached disk.
func writeRows(fw source.ParquetFile, path string, schema interface{}, n int, row func(int) interface{}) error {
	pw, err := writer.NewParquetWriter(fw, schema, parallelism)
	if err != nil {
		fw.Close()
		return fmt.Errorf("creating parquet writer for %s: %w", path, err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for i := 0; i < n; i++ {
		if err := pw.Write(row(i)); err != nil {
			fw.Close()
			return fmt.Errorf("writing %s row %d: %w", path, i, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return fmt.Errorf("finishing %s: %w", path, err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

// readFile opens path and reads all rows into the slice pointer returned by dst.
func readFile(path string, schema interface{}, dst func(n int) interface{}) error {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, schema, parallelism)
	if err != nil {
		return fmt.Errorf("creating parquet reader for %s: %w", path, err)
	}
	defer pr.ReadStop()

	n := int(pr.GetNumRows())
	if err := pr.Read(dst(n)); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}
