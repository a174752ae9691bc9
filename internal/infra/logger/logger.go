package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "FATAL"
	}
}

// Logger writes leveled lines to a file sink, optionally echoes them to a
// console sink, and forwards everything it accepts to its parent.
type Logger struct {
	name         string
	fileLogger   *log.Logger
	closer       io.Closer
	level        Level
	console      *log.Logger
	consoleLevel Level
	parent       *Logger
}

// New opens filePath for appending. When includeStdout is set, lines at
// Info and above are echoed to stdout.
func New(filePath string, level Level, includeStdout bool) (*Logger, error) {
	f, err := openFile(filePath)
	if err != nil {
		return nil, err
	}

	l := &Logger{
		name:       "fanout",
		fileLogger: log.New(f, "", 0),
		closer:     f,
		level:      level,
	}
	if includeStdout {
		l.console = log.New(os.Stdout, "", 0)
		l.consoleLevel = LevelInfo
	}
	return l, nil
}

// NewWriter builds a logger over an arbitrary writer. Mostly useful in tests.
func NewWriter(name string, w io.Writer, level Level) *Logger {
	return &Logger{
		name:       name,
		fileLogger: log.New(w, "", 0),
		level:      level,
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWriter("discard", io.Discard, LevelFatal+1)
}

func openFile(filePath string) (*os.File, error) {
	return os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

// Name returns the stream name printed on every line.
func (l *Logger) Name() string { return l.name }

// Close closes the file sink if the logger owns one.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func (l *Logger) log(lvl Level, format string, v ...interface{}) {
	if lvl < l.level {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf(format, v...)
	l.emit(lvl, fmt.Sprintf("%s - %s - %s - %s", timestamp, l.name, lvl, msg))
}

// emit writes an already formatted line. Children call it on their parent so
// the line keeps the child's name.
func (l *Logger) emit(lvl Level, line string) {
	if lvl >= l.level {
		l.fileLogger.Println(line)
	}

	// The console only sees lines that clear its own threshold, so per-item
	// debug output never floods the terminal.
	if l.console != nil && lvl >= l.consoleLevel {
		l.console.Println(line)
	}

	if l.parent != nil {
		l.parent.emit(lvl, line)
	}
}

func ParseLevel(lvl string) Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l *Logger) Debug(f string, v ...any) { l.log(LevelDebug, f, v...) }
func (l *Logger) Info(f string, v ...any)  { l.log(LevelInfo, f, v...) }
func (l *Logger) Warn(f string, v ...any)  { l.log(LevelWarn, f, v...) }
func (l *Logger) Error(f string, v ...any) { l.log(LevelError, f, v...) }
func (l *Logger) Fatal(f string, v ...any) { l.log(LevelFatal, f, v...); os.Exit(1) }

func (l *Logger) Write(p []byte) (n int, err error) {
	// Echo and other libraries often include a newline at the end
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		l.Info("%s", msg)
	}
	return len(p), nil
}

// Set owns the main stream and one stream per worker, all sharing a file
// prefix: <prefix>.main and <prefix>.<worker id>.
type Set struct {
	prefix  string
	level   Level
	discard bool
	shared  bool

	main *Logger

	mu      sync.Mutex
	workers map[int]*Logger
}

// NewSet opens <prefix>.main. When console is non-nil, lines at Error and
// above are echoed to it from every stream exactly once.
func NewSet(prefix string, level Level, console io.Writer) (*Set, error) {
	f, err := openFile(prefix + ".main")
	if err != nil {
		return nil, fmt.Errorf("failed to open main log: %w", err)
	}

	main := &Logger{
		name:       "fanout",
		fileLogger: log.New(f, "", 0),
		closer:     f,
		level:      level,
	}
	if console != nil {
		main.console = log.New(console, "", 0)
		main.consoleLevel = LevelError
	}

	return &Set{
		prefix:  prefix,
		level:   level,
		main:    main,
		workers: make(map[int]*Logger),
	}, nil
}

// NewDiscardSet returns a Set whose streams drop everything.
func NewDiscardSet() *Set {
	return &Set{
		discard: true,
		main:    Discard(),
		workers: make(map[int]*Logger),
	}
}

// NewWriterSet returns a Set whose streams all land on w through the main
// stream. Nothing is opened on disk.
func NewWriterSet(w io.Writer, level Level) *Set {
	return &Set{
		level:   level,
		shared:  true,
		main:    NewWriter("fanout", w, level),
		workers: make(map[int]*Logger),
	}
}

// Main returns the aggregate stream.
func (s *Set) Main() *Logger { return s.main }

// Worker returns the stream for worker id, opening its file on first use.
// Worker lines are forwarded to the main stream.
func (s *Set) Worker(id int) (*Logger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.workers[id]; ok {
		return l, nil
	}

	if s.discard {
		l := Discard()
		s.workers[id] = l
		return l, nil
	}

	if s.shared {
		l := &Logger{
			name:       fmt.Sprintf("fanout.%d", id),
			fileLogger: log.New(io.Discard, "", 0),
			level:      s.level,
			parent:     s.main,
		}
		s.workers[id] = l
		return l, nil
	}

	f, err := openFile(fmt.Sprintf("%s.%d", s.prefix, id))
	if err != nil {
		return nil, fmt.Errorf("failed to open log for worker %d: %w", id, err)
	}

	l := &Logger{
		name:       fmt.Sprintf("fanout.%d", id),
		fileLogger: log.New(f, "", 0),
		closer:     f,
		level:      s.level,
		parent:     s.main,
	}
	s.workers[id] = l
	return l, nil
}

// Close closes every stream opened by the set.
func (s *Set) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for id, l := range s.workers {
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.workers, id)
	}
	if err := s.main.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
