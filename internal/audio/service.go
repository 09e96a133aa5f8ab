// Package audio manages recorded narration files.
//
// Files live flat in one directory and are addressed by bare filename; the
// repository stores only that name. Capture devices are platform specific,
// so recording reads PCM from a pluggable Capture source. Playback goes
// through an Output, by default the system device via oto.
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrNoCapture is returned by RecordStart when no capture source is set.
	ErrNoCapture = errors.New("no capture source configured")

	// ErrInvalidName is returned for filenames that are not a bare file name.
	ErrInvalidName = errors.New("invalid audio filename")

	// ErrNotRecording is returned when stopping a recording twice.
	ErrNotRecording = errors.New("recording already stopped")
)

// Capture opens a stream of PCM in DefaultFormat. The stream is read until
// EOF or until the recording is stopped, at which point it is closed.
type Capture func(ctx context.Context) (io.ReadCloser, error)

// Service records, plays, imports and deletes audio files in one directory.
type Service struct {
	dir     string
	format  Format
	capture Capture
	output  Output
	logger  *slog.Logger

	mu      sync.Mutex
	playing context.CancelFunc
	gen     uint64 // identifies the playback that owns playing
}

// Option configures a Service.
type Option func(*Service)

// WithCapture sets the PCM source used by RecordStart.
func WithCapture(c Capture) Option {
	return func(s *Service) { s.capture = c }
}

// WithOutput sets the playback device. Default: an OtoOutput.
func WithOutput(o Output) Option {
	return func(s *Service) { s.output = o }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service storing files in dir. The directory is created if
// needed.
func New(dir string, opts ...Option) (*Service, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio dir %s: %w", dir, err)
	}
	s := &Service{
		dir:    dir,
		format: DefaultFormat,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.output == nil {
		s.output = NewOtoOutput(s.format)
	}
	return s, nil
}

// Dir returns the directory audio files are kept in.
func (s *Service) Dir() string {
	return s.dir
}

// Path returns the absolute location of filename.
func (s *Service) Path(filename string) (string, error) {
	if err := checkName(filename); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, filename), nil
}

// Recording is an in-progress capture. Stop it with Service.RecordStop.
type Recording struct {
	filename string
	tmp      *os.File
	src      io.ReadCloser
	cancel   context.CancelFunc
	done     chan struct{}

	mu      sync.Mutex
	n       int
	copyErr error
	stopped bool
}

// Filename is the name the recording will be saved under.
func (r *Recording) Filename() string {
	return r.filename
}

// Done is closed once the capture source is exhausted or the recording is
// stopped.
func (r *Recording) Done() <-chan struct{} {
	return r.done
}

// RecordStart begins capturing PCM into a new file.
func (s *Service) RecordStart(ctx context.Context) (*Recording, error) {
	if s.capture == nil {
		return nil, ErrNoCapture
	}
	ctx, cancel := context.WithCancel(ctx)
	src, err := s.capture(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open capture: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".rec-*")
	if err != nil {
		cancel()
		src.Close()
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	rec := &Recording{
		filename: uuid.Must(uuid.NewV7()).String() + ".wav",
		tmp:      tmp,
		src:      src,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go rec.pump()

	s.logger.Debug("recording started", "filename", rec.filename)
	return rec, nil
}

// pump copies PCM from the capture source into the temp file.
func (r *Recording) pump() {
	defer close(r.done)
	buf := make([]byte, 32*1024)
	for {
		n, err := r.src.Read(buf)
		if n > 0 {
			if _, werr := r.tmp.Write(buf[:n]); werr != nil {
				r.setErr(werr)
				return
			}
			r.mu.Lock()
			r.n += n
			r.mu.Unlock()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !r.isStopped() {
				r.setErr(err)
			}
			return
		}
	}
}

func (r *Recording) setErr(err error) {
	r.mu.Lock()
	r.copyErr = err
	r.mu.Unlock()
}

func (r *Recording) isStopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

// RecordStop ends a recording and saves it as a WAV file.
// Returns the filename and duration in seconds.
func (s *Service) RecordStop(rec *Recording) (string, float64, error) {
	rec.mu.Lock()
	if rec.stopped {
		rec.mu.Unlock()
		return "", 0, ErrNotRecording
	}
	rec.stopped = true
	rec.mu.Unlock()

	rec.cancel()
	rec.src.Close()
	<-rec.done

	tmpName := rec.tmp.Name()
	defer os.Remove(tmpName) // No-op after a successful rename

	rec.mu.Lock()
	n, copyErr := rec.n, rec.copyErr
	rec.mu.Unlock()
	if copyErr != nil {
		rec.tmp.Close()
		return "", 0, fmt.Errorf("capture: %w", copyErr)
	}

	if _, err := rec.tmp.Seek(0, io.SeekStart); err != nil {
		rec.tmp.Close()
		return "", 0, fmt.Errorf("rewind recording: %w", err)
	}
	pcm, err := io.ReadAll(rec.tmp)
	rec.tmp.Close()
	if err != nil {
		return "", 0, fmt.Errorf("read recording: %w", err)
	}

	if err := s.writeFile(rec.filename, encodeWAV(pcm[:n], s.format)); err != nil {
		return "", 0, err
	}
	dur := s.format.Duration(n).Seconds()
	s.logger.Info("recording saved", "filename", rec.filename, "duration", dur)
	return rec.filename, dur, nil
}

// Import copies an existing WAV file into the audio directory.
// Returns the new filename and the duration in seconds.
func (s *Service) Import(ctx context.Context, src string) (string, float64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return "", 0, fmt.Errorf("read %s: %w", src, err)
	}
	f, pcm, err := decodeWAV(data)
	if err != nil {
		return "", 0, fmt.Errorf("import %s: %w", src, err)
	}

	name := uuid.Must(uuid.NewV7()).String() + ".wav"
	if err := s.writeFile(name, data); err != nil {
		return "", 0, err
	}
	dur := f.Duration(len(pcm)).Seconds()
	s.logger.Info("audio imported", "source", src, "filename", name, "duration", dur)
	return name, dur, nil
}

// writeFile writes data to filename via a temp file and rename, so a
// reader never sees a partial file.
func (s *Service) writeFile(filename string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", filename, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, filename)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", filename, err)
	}
	return nil
}

// Play plays filename and blocks until it finishes, ctx is done, or Stop
// is called. Starting a new playback stops the previous one.
func (s *Service) Play(ctx context.Context, filename string) error {
	path, err := s.Path(filename)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filename, err)
	}
	f, pcm, err := decodeWAV(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", filename, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.playing != nil {
		s.playing()
		s.output.Stop()
	}
	s.gen++
	gen := s.gen
	s.playing = cancel
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		if s.gen == gen {
			s.playing = nil
		}
		s.mu.Unlock()
	}()

	s.logger.Debug("playing audio", "filename", filename, "bytes", len(pcm))
	err = s.output.Play(ctx, pcm, f)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stop interrupts playback. Safe to call when idle.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel := s.playing
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.output.Stop()
}

// DeleteFile removes filename. A file that is already gone is not an error.
func (s *Service) DeleteFile(ctx context.Context, filename string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.Path(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", filename, err)
	}
	s.logger.Debug("audio file deleted", "filename", filename)
	return nil
}

// checkName rejects anything but a bare file name inside the directory.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return nil
}
