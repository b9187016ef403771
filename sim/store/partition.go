package store

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mab-sim/mab-sim/sim"
)

const (
	historyDir  = "history"
	markingsDir = "markings"
)

// PartitionWriter lays a run out as date-partitioned parquet files:
//
//	<Dir>/markings/date=YYYY-MM-DD/part-<run>.parquet
//	<Dir>/history/date=YYYY-MM-DD/part-<run>.parquet
//
// It implements sim.PeriodSink.
type PartitionWriter struct {
	Dir   string
	RunID string
}

// NewPartitionWriter creates a writer rooted at dir for the given run.
func NewPartitionWriter(dir, runID string) *PartitionWriter {
	return &PartitionWriter{Dir: dir, RunID: runID}
}

// HistoryPattern returns the glob matching every history partition under dir.
func HistoryPattern(dir string) string {
	return filepath.Join(dir, historyDir, "date=*", "*.parquet")
}

func (w *PartitionWriter) partitionPath(table string, date time.Time) string {
	return filepath.Join(w.Dir, table, "date="+date.Format(time.DateOnly),
		fmt.Sprintf("part-%s.parquet", w.RunID))
}

// WritePeriod implements sim.PeriodSink.
func (w *PartitionWriter) WritePeriod(period int, date time.Time, ledger *sim.MarkingLedger, outcomes []sim.Outcome) error {
	if err := WriteMarkings(w.partitionPath(markingsDir, date), ledger); err != nil {
		return err
	}
	if err := WriteOutcomes(w.partitionPath(historyDir, date), outcomes); err != nil {
		return err
	}
	logrus.Debugf("period %d: wrote %d markings and %d outcomes under %s", period, ledger.Len(), len(outcomes), w.Dir)
	return nil
}
