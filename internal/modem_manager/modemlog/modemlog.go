// Package modemlog keeps a plain text record of the modem traffic next to the
// structured application log.
package modemlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/LeoCommon/cellgw/internal/modem_manager/modem/at"
	"github.com/LeoCommon/cellgw/pkg/log"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const TimeLayout = "2006-01-02 15:04:05.000"

// FileSink appends every line to a writer, a failing writer never fails the modem
type FileSink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	mirror *zap.Logger
	now    func() time.Time

	run     uuid.UUID
	started time.Time
}

func New(w io.Writer) *FileSink {
	return &FileSink{w: w, mirror: log.Named("modem"), now: time.Now}
}

// Open appends to the file at path, creating it and its directory
func Open(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	s := New(f)
	s.closer = f
	return s, nil
}

func (s *FileSink) write(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.w == nil {
		return
	}

	if _, err := fmt.Fprintf(s.w, "%s: %s\n", s.now().Format(TimeLayout), text); err != nil {
		log.Debug("modem log write failed", zap.Error(err))
	}
}

func (s *FileSink) Record(dir at.Direction, text string) {
	s.write(dir.String() + " " + text)
	s.mirror.Debug(text, zap.Stringer("dir", dir))
}

// Start marks the beginning of a workflow and returns its run id
func (s *FileSink) Start(name string) uuid.UUID {
	s.mu.Lock()
	s.run = uuid.New()
	s.started = s.now()
	run := s.run
	s.mu.Unlock()

	s.write(fmt.Sprintf("===== START %s [%s] =====", name, run))
	s.mirror.Info("workflow started", zap.String("name", name), zap.Stringer("run", run))
	return run
}

// End closes the marker opened by Start with the outcome of the workflow
func (s *FileSink) End(err error) {
	s.mu.Lock()
	run, took := s.run, s.now().Sub(s.started)
	s.mu.Unlock()

	outcome := "OK"
	if err != nil {
		outcome = "FAILED: " + err.Error()
	}

	s.write(fmt.Sprintf("===== END [%s] %s after %s =====", run, outcome, took.Round(time.Millisecond)))
	s.mirror.Info("workflow finished", zap.Stringer("run", run), zap.Duration("took", took), zap.Error(err))
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.w = nil
	if s.closer == nil {
		return nil
	}

	err := s.closer.Close()
	s.closer = nil
	return err
}
