package signals

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"guestmail/internal/logging"
)

const (
	ActiveFileName               = "draft-signal-events.jsonl"
	DefaultArchiveThresholdBytes = 1 << 20
	DefaultRetention             = 30 * 24 * time.Hour

	maxLineBytes = 8 << 20
)

// Store is the JSONL signal log. Writers and readers are not coordinated;
// the store assumes a single process.
type Store struct {
	Dir                   string
	ArchiveThresholdBytes int64
	Retention             time.Duration
	Clock                 func() time.Time
	Logger                *slog.Logger
}

// NewStore returns a Store over dir with the default threshold and retention.
func NewStore(dir string) *Store {
	return &Store{
		Dir:                   dir,
		ArchiveThresholdBytes: DefaultArchiveThresholdBytes,
		Retention:             DefaultRetention,
		Clock:                 time.Now,
	}
}

func (s *Store) ActivePath() string {
	return filepath.Join(s.Dir, ActiveFileName)
}

// ArchivePath names the archive file for a cutoff date.
func (s *Store) ArchivePath(cutoff time.Time) string {
	return filepath.Join(s.Dir, fmt.Sprintf("draft-signal-events-%s.jsonl", cutoff.UTC().Format("2006-01-02")))
}

func (s *Store) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *Store) logger() *slog.Logger {
	return logging.OrDefault(s.Logger)
}

// Append writes ev as one line at the end of the active file.
func (s *Store) Append(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("ensure signals dir: %w", err)
	}
	f, err := os.OpenFile(s.ActivePath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open signal log: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("append %s event: %w", ev.Kind(), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close signal log: %w", err)
	}
	return nil
}

// Emit makes the Store a Sink.
func (s *Store) Emit(ctx context.Context, ev Event) error {
	return s.Append(ctx, ev)
}

// ReadResult is the validated content of the active log.
type ReadResult struct {
	Selections  []SelectionEvent  `json:"selections"`
	Refinements []RefinementEvent `json:"refinements"`
	Skipped     int               `json:"skipped"`
	Archive     *ArchiveResult    `json:"archive,omitempty"`
}

// Read loads every valid event from the active file. When the file has grown
// past the archive threshold it is archived first, with a cutoff of now minus
// the retention window. Lines that fail to parse or validate are skipped and
// counted.
func (s *Store) Read(ctx context.Context) (*ReadResult, error) {
	res := &ReadResult{
		Selections:  []SelectionEvent{},
		Refinements: []RefinementEvent{},
	}
	path := s.ActivePath()
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return res, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat signal log: %w", err)
	}

	threshold := s.ArchiveThresholdBytes
	if threshold <= 0 {
		threshold = DefaultArchiveThresholdBytes
	}
	if info.Size() > threshold {
		retention := s.Retention
		if retention <= 0 {
			retention = DefaultRetention
		}
		ar := s.Archive(ctx, s.now().Add(-retention))
		res.Archive = &ar
		s.logger().Info("signal log auto-archived",
			"size_bytes", info.Size(),
			"archived_count", ar.ArchivedCount,
			"retained_count", ar.RetainedCount,
		)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return res, nil
		}
		return nil, fmt.Errorf("open signal log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		ev, err := decodeLine(line)
		if err != nil {
			res.Skipped++
			s.logger().Warn("skipping signal log line", "line", lineNo, "error", err.Error())
			continue
		}
		switch e := ev.(type) {
		case SelectionEvent:
			res.Selections = append(res.Selections, e)
		case RefinementEvent:
			res.Refinements = append(res.Refinements, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan signal log: %w", err)
	}
	return res, nil
}

// ArchiveResult reports one archival run. Error is set, and the active file
// left untouched, when the run failed.
type ArchiveResult struct {
	ArchivedCount int    `json:"archived_count"`
	RetainedCount int    `json:"retained_count"`
	ArchivePath   string `json:"archive_path,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Archive moves every event with ts at or before cutoff into the dated
// archive file. The archive is appended before the active file is rewritten,
// so a crash in between duplicates events but never loses them. Lines without
// a readable ts stay in the active file. Running it again with the same
// cutoff archives nothing.
func (s *Store) Archive(ctx context.Context, cutoff time.Time) ArchiveResult {
	res, err := s.applyArchive(ctx, cutoff)
	if err != nil {
		res.Error = err.Error()
		s.logger().Warn("signal archival failed", "cutoff", cutoff.UTC().Format(time.RFC3339), "error", err.Error())
	}
	return res
}

type partition struct {
	archive [][]byte
	retain  [][]byte
}

func (s *Store) applyArchive(ctx context.Context, cutoff time.Time) (ArchiveResult, error) {
	res := ArchiveResult{}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	data, err := os.ReadFile(s.ActivePath())
	if errors.Is(err, os.ErrNotExist) {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("read signal log: %w", err)
	}

	p := partitionLines(data, cutoff)
	res.RetainedCount = len(p.retain)
	if len(p.archive) == 0 {
		return res, nil
	}

	archivePath := s.ArchivePath(cutoff)
	if err := appendLines(archivePath, p.archive); err != nil {
		return ArchiveResult{}, err
	}
	if err := rewriteLines(s.ActivePath(), p.retain); err != nil {
		return ArchiveResult{}, err
	}
	res.ArchivedCount = len(p.archive)
	res.ArchivePath = archivePath
	return res, nil
}

func partitionLines(data []byte, cutoff time.Time) partition {
	var p partition
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var head struct {
			TS *time.Time `json:"ts"`
		}
		if err := json.Unmarshal(line, &head); err != nil || head.TS == nil || head.TS.After(cutoff) {
			p.retain = append(p.retain, line)
			continue
		}
		p.archive = append(p.archive, line)
	}
	return p
}

func appendLines(path string, lines [][]byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	if err := writeLines(f, lines); err != nil {
		_ = f.Close()
		return fmt.Errorf("write archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}

func rewriteLines(path string, lines [][]byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp signal log: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()
	if err := writeLines(tmp, lines); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp signal log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp signal log: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename signal log: %w", err)
	}
	return nil
}

func writeLines(w io.Writer, lines [][]byte) error {
	bw := bufio.NewWriter(w)
	for _, line := range lines {
		if _, err := bw.Write(line); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
