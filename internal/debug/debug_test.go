package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestShouldEnableFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		enabled string
		path    string
		want    bool
	}{
		{name: "disabled by default", enabled: "", path: "", want: false},
		{name: "enabled explicit", enabled: "1", path: "", want: true},
		{name: "enabled via path", enabled: "", path: "/tmp/loopdash.log", want: true},
		{name: "explicit off wins", enabled: "off", path: "/tmp/loopdash.log", want: false},
		{name: "unknown toggle without path", enabled: "maybe", path: "", want: false},
		{name: "unknown toggle with path", enabled: "maybe", path: "/tmp/loopdash.log", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvEnabled, tt.enabled)
			t.Setenv(EnvLogPath, tt.path)
			if got := ShouldEnableFromEnv(); got != tt.want {
				t.Fatalf("ShouldEnableFromEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInitWritesToInheritedPath(t *testing.T) {
	defer Close()

	logPath := filepath.Join(t.TempDir(), "nested", "dash.log")
	t.Setenv(EnvLogPath, logPath)

	got, err := Init()
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if got != logPath || Path() != logPath || !Enabled() {
		t.Fatalf("Init() = %q, Path() = %q, Enabled() = %v", got, Path(), Enabled())
	}
	again, err := Init()
	if err != nil || again != logPath {
		t.Fatalf("second Init() = %q, %v", again, err)
	}

	LogKV("trace", "ingest", "events", 3, "desc", "run tests", "parent", "")
	Logf("story", "cycle %s", "a -> b -> a")
	Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	s := string(data)
	for _, want := range []string{
		"=== LOOPDASH DEBUG LOG ===",
		`ingest events=3 desc="run tests" parent=""`,
		"cycle a -> b -> a",
		"debug/debug_test.go:",
		"DEBUG LOG CLOSED",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("log missing %q:\n%s", want, s)
		}
	}
	if Enabled() {
		t.Fatal("logger still enabled after Close")
	}
}

func TestInitUsesLoopdashHome(t *testing.T) {
	defer Close()
	home := t.TempDir()
	t.Setenv(EnvLogPath, "")
	t.Setenv(envHome, home)

	got, err := Init()
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if filepath.Dir(got) != filepath.Join(home, "debug") {
		t.Fatalf("log path = %q, want under %s", got, home)
	}
}

func TestPruneKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	for i := 1; i <= 5; i++ {
		name := filepath.Join(dir, fmt.Sprintf("2026010%dT000000_x.log", i))
		if err := os.WriteFile(name, nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	prune(dir, 2)

	left, _ := filepath.Glob(filepath.Join(dir, "*.log"))
	if len(left) != 2 {
		t.Fatalf("left = %v", left)
	}
	for _, p := range left {
		base := filepath.Base(p)
		if !strings.HasPrefix(base, "20260104") && !strings.HasPrefix(base, "20260105") {
			t.Fatalf("pruned the wrong file, kept %s", base)
		}
	}
}

func TestLogDisabledIsNoop(t *testing.T) {
	Close()
	Log("x", "nothing")
	LogKV("x", "nothing", "k", "v")
	if Path() != "" {
		t.Fatalf("Path() = %q, want empty", Path())
	}
}
