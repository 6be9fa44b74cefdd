// Package debug is loopdash's diagnostic log.
//
// With --debug (or LOOPDASH_DEBUG_ENABLED / LOOPDASH_DEBUG_LOG_PATH) every
// poll tick, ingest, resolve and skipped line is appended to a file under
// $LOOPDASH_HOME/debug (default ~/.loopdash/debug). Otherwise all calls are
// no-ops, so callers never guard them.
package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agusx1211/loopdash/internal/hexid"
)

const (
	// EnvEnabled toggles debug logging without the --debug flag.
	EnvEnabled = "LOOPDASH_DEBUG_ENABLED"
	// EnvLogPath appends to the given file instead of a fresh one.
	EnvLogPath = "LOOPDASH_DEBUG_LOG_PATH"

	envHome = "LOOPDASH_HOME"

	// keepLogs is how many generated log files survive pruning.
	keepLogs = 20
)

var (
	mu  sync.RWMutex
	cur *sink
)

type sink struct {
	mu    sync.Mutex
	f     *os.File
	path  string
	start time.Time
}

// Init opens the debug log and returns its path. Repeated calls return the
// path of the log already open.
func Init() (string, error) {
	if p := Path(); p != "" {
		return p, nil
	}

	path, id, err := logPath()
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("debug: open log %s: %w", path, err)
	}
	s := &sink{f: f, path: path, start: time.Now()}
	fmt.Fprintf(f, "=== LOOPDASH DEBUG LOG ===\nstarted %s pid %d id %s\nargs %s\n\n",
		s.start.Format(time.RFC3339Nano), os.Getpid(), id, strings.Join(os.Args, " "))

	mu.Lock()
	defer mu.Unlock()
	if cur != nil {
		f.Close()
		return cur.path, nil
	}
	cur = s
	return path, nil
}

// Close writes a trailer and closes the log. It is safe to call when the log
// was never opened.
func Close() {
	mu.Lock()
	s := cur
	cur = nil
	mu.Unlock()
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.f, "\n=== DEBUG LOG CLOSED === (after %s)\n", time.Since(s.start).Truncate(time.Millisecond))
	s.f.Close()
}

// Enabled reports whether a log is open.
func Enabled() bool { return Path() != "" }

// Path returns the open log's path, or "".
func Path() string {
	mu.RLock()
	defer mu.RUnlock()
	if cur == nil {
		return ""
	}
	return cur.path
}

// ShouldEnableFromEnv reports whether the environment asks for debug logging.
// An explicit EnvEnabled value wins; otherwise setting EnvLogPath enables it.
func ShouldEnableFromEnv() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(EnvEnabled))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return strings.TrimSpace(os.Getenv(EnvLogPath)) != ""
}

// Log writes one line for component.
func Log(component, msg string) {
	if s := active(); s != nil {
		s.write(component, msg)
	}
}

// Logf is Log with formatting.
func Logf(component, format string, args ...any) {
	if s := active(); s != nil {
		s.write(component, fmt.Sprintf(format, args...))
	}
}

// LogKV writes msg followed by key=value pairs. Values containing spaces are
// quoted.
//
//	debug.LogKV("trace", "ingest", "events", 12, "nodes", 40)
func LogKV(component, msg string, kvs ...any) {
	s := active()
	if s == nil {
		return
	}
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(kvs); i += 2 {
		v := fmt.Sprint(kvs[i+1])
		if v == "" || strings.ContainsAny(v, " \t\n\"") {
			v = fmt.Sprintf("%q", v)
		}
		fmt.Fprintf(&b, " %v=%s", kvs[i], v)
	}
	s.write(component, b.String())
}

func active() *sink {
	mu.RLock()
	defer mu.RUnlock()
	return cur
}

// write formats "TIME +ELAPSED [component] file:line | msg". The caller is
// two frames up: write <- Log* <- call site.
func (s *sink) write(component, msg string) {
	now := time.Now()
	caller := "?"
	if _, file, line, ok := runtime.Caller(2); ok {
		caller = fmt.Sprintf("%s:%d", shortFile(file), line)
	}
	line := fmt.Sprintf("%s +%-10s [%-9s] %-28s | %s\n",
		now.Format("15:04:05.000000"),
		now.Sub(s.start).Truncate(time.Millisecond),
		component,
		caller,
		msg,
	)
	s.mu.Lock()
	s.f.WriteString(line)
	s.mu.Unlock()
}

// shortFile trims a source path to its package directory and file name.
func shortFile(file string) string {
	dir, name := filepath.Split(file)
	return filepath.Join(filepath.Base(dir), name)
}

func logPath() (path, id string, err error) {
	if p := strings.TrimSpace(os.Getenv(EnvLogPath)); p != "" {
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return "", "", fmt.Errorf("debug: create dir: %w", err)
		}
		return p, "inherited", nil
	}

	dir, err := logDir()
	if err != nil {
		return "", "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("debug: create dir %s: %w", dir, err)
	}
	prune(dir, keepLogs-1)
	id = hexid.New()
	return filepath.Join(dir, time.Now().Format("20060102T150405")+"_"+id+".log"), id, nil
}

func logDir() (string, error) {
	if home := strings.TrimSpace(os.Getenv(envHome)); home != "" {
		return filepath.Join(home, "debug"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("debug: user home dir: %w", err)
	}
	return filepath.Join(home, ".loopdash", "debug"), nil
}

// prune removes the oldest generated logs in dir so at most keep remain.
// Generated names start with a sortable timestamp.
func prune(dir string, keep int) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.log"))
	if err != nil || len(matches) <= keep {
		return
	}
	sort.Strings(matches)
	for _, p := range matches[:len(matches)-keep] {
		os.Remove(p)
	}
}
