package scan

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/sarchlab/v2p/datarecording"
	"github.com/sarchlab/v2p/mem/vm/addresstranslator"
	"github.com/sarchlab/v2p/mem/vm/pagemap"
)

// LogHook writes scan progress to a zap logger. Per-address records are
// logged at debug level, failures at warn level.
type LogHook struct {
	log *zap.Logger

	sawFrame        bool
	warnedPFNHidden bool
}

// NewLogHook creates a LogHook.
func NewLogHook(log *zap.Logger) *LogHook {
	return &LogHook{log: log}
}

// Func logs the event.
func (h *LogHook) Func(ctx HookCtx) {
	switch ctx.Pos {
	case HookPosRegion:
		region := ctx.Item.(pagemap.Region)
		h.log.Debug("scanning region",
			zap.String("start", hex(region.Start)),
			zap.String("size", humanize.IBytes(region.Len())),
			zap.String("perms", region.Perms),
			zap.String("path", region.Path))
	case HookPosRecord:
		h.logRecord(ctx.Item.(Record))
	case HookPosDone:
		h.logDone(ctx.Item.(Summary), ctx.Detail)
	}
}

func (h *LogHook) logRecord(r Record) {
	switch r.Kind {
	case addresstranslator.Resident:
		h.checkPFNHidden(r)

		h.log.Debug("resident",
			zap.Int("seq", r.Seq),
			zap.String("vaddr", hex(r.VAddr)),
			zap.String("paddr", hex(r.PAddr)),
			zap.Uint32("row", r.Location.Row),
			zap.Uint8("bank", r.Location.Bank),
			zap.Uint16("column", r.Location.Column))
	case addresstranslator.NotResident:
		h.log.Debug("not resident",
			zap.Int("seq", r.Seq),
			zap.String("vaddr", hex(r.VAddr)),
			zap.Stringer("entry", r.Entry))
	default:
		h.log.Warn("translation failed",
			zap.Int("seq", r.Seq),
			zap.String("vaddr", hex(r.VAddr)),
			zap.Error(r.Err))
	}
}

// checkPFNHidden warns once when the resident pages seen so far all have
// frame 0. A single non-zero frame proves frame numbers are readable.
func (h *LogHook) checkPFNHidden(r Record) {
	if !r.PFNHidden() {
		h.sawFrame = true
		return
	}

	if h.sawFrame || h.warnedPFNHidden {
		return
	}

	h.warnedPFNHidden = true
	h.log.Warn("kernel reports zero frame numbers, " +
		"physical addresses are meaningless without CAP_SYS_ADMIN")
}

func (h *LogHook) logDone(s Summary, detail any) {
	fields := []zap.Field{
		zap.String("scanned", humanize.Comma(int64(s.Total()))),
		zap.Int("resident", s.Resident),
		zap.Int("not_resident", s.NotResident),
		zap.Int("failed", s.Failed),
	}

	if err, ok := detail.(error); ok && err != nil {
		h.log.Info("scan ended early", append(fields, zap.Error(err))...)
		return
	}

	h.log.Info("scan finished", fields...)
}

// PrintHook writes one human-readable line per record, and a summary line
// when the scan ends.
type PrintHook struct {
	w   io.Writer
	err error
}

// NewPrintHook creates a PrintHook that writes to w.
func NewPrintHook(w io.Writer) *PrintHook {
	return &PrintHook{w: w}
}

// Func prints the event.
func (h *PrintHook) Func(ctx HookCtx) {
	switch ctx.Pos {
	case HookPosRecord:
		h.printf("%s\n", ctx.Item.(Record))
	case HookPosDone:
		s := ctx.Item.(Summary)
		h.printf("Scanned %s addresses: %d resident, %d not resident, "+
			"%d failed\n",
			humanize.Comma(int64(s.Total())), s.Resident, s.NotResident,
			s.Failed)
	}
}

// Err returns the first write error, if any.
func (h *PrintHook) Err() error {
	return h.err
}

func (h *PrintHook) printf(format string, args ...any) {
	if h.err != nil {
		return
	}

	_, h.err = fmt.Fprintf(h.w, format, args...)
}

// TranslationTable is the table RecordHook stores records in.
const TranslationTable = "translations"

// RecordHook stores every record as a TranslationRow.
type RecordHook struct {
	recorder datarecording.DataRecorder
	err      error
}

// NewRecordHook creates the translation table and returns a hook that fills
// it.
func NewRecordHook(recorder datarecording.DataRecorder) (*RecordHook, error) {
	err := recorder.CreateTable(TranslationTable, TranslationRow{})
	if err != nil {
		return nil, fmt.Errorf("create record hook: %w", err)
	}

	return &RecordHook{recorder: recorder}, nil
}

// Func stores records and flushes when the scan is done.
func (h *RecordHook) Func(ctx HookCtx) {
	if h.err != nil {
		return
	}

	switch ctx.Pos {
	case HookPosRecord:
		session := ""
		if s, ok := ctx.Domain.(*Scanner); ok {
			session = s.Session()
		}

		row := ctx.Item.(Record).Row(session)
		h.err = h.recorder.InsertData(TranslationTable, row)
	case HookPosDone:
		h.err = h.recorder.Flush()
	}
}

// Err returns the first recording error, if any. Recording stops after it.
func (h *RecordHook) Err() error {
	return h.err
}

func hex(v uint64) string {
	return fmt.Sprintf("0x%x", v)
}
