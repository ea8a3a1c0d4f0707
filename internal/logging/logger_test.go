package logging

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// TestAllCategoriesLog tests that all categories create log files when debug mode is on
func TestAllCategoriesLog(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(Options{Dir: dir, DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	t.Cleanup(func() { _ = Initialize(Options{}) })

	if !IsDebugMode() {
		t.Error("Expected debug mode to be enabled")
	}

	categories := []Category{
		CategoryBoot,
		CategoryServer,
		CategorySession,
		CategorySlicer,
		CategoryDiscovery,
		CategoryResolver,
		CategoryAssembly,
		CategoryVerify,
		CategoryStore,
	}

	for _, cat := range categories {
		if !IsCategoryEnabled(cat) {
			t.Errorf("Category %s should be enabled", cat)
		}
		logger := Get(cat)
		logger.Info("Test info message for %s", cat)
		logger.Debug("Test debug message for %s", cat)
	}

	CloseAll()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read logs dir: %v", err)
	}
	for _, cat := range categories {
		found := false
		for _, entry := range entries {
			if strings.HasSuffix(entry.Name(), "_"+string(cat)+".log") {
				found = true
				content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
				if err != nil {
					t.Errorf("Failed to read log file for %s: %v", cat, err)
				} else if len(content) == 0 {
					t.Errorf("Log file for %s is empty", cat)
				}
				break
			}
		}
		if !found {
			t.Errorf("No log file found for category: %s", cat)
		}
	}
}

// TestDebugModeDisabled tests that no logs are created when debug mode is off
func TestDebugModeDisabled(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	if err := Initialize(Options{Dir: dir, DebugMode: false}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	Discovery("should not be written")
	if Get(CategoryDiscovery).Enabled() {
		t.Error("logger should be a no-op in production mode")
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("logs directory should not exist, stat err = %v", err)
	}
}

func TestCategoryFilterAndLevel(t *testing.T) {
	dir := t.TempDir()
	err := Initialize(Options{
		Dir:        dir,
		DebugMode:  true,
		Level:      "warn",
		Categories: map[string]bool{"resolver": false},
	})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { _ = Initialize(Options{}) })

	if IsCategoryEnabled(CategoryResolver) {
		t.Error("resolver category should be disabled")
	}
	if !IsCategoryEnabled(CategoryVerify) {
		t.Error("unlisted categories default to enabled")
	}

	Get(CategoryVerify).Info("dropped by level")
	Get(CategoryVerify).Warn("kept")
	CloseAll()

	matches, _ := filepath.Glob(filepath.Join(dir, "*_verify.log"))
	if len(matches) != 1 {
		t.Fatalf("expected one verify log, got %v", matches)
	}
	content, _ := os.ReadFile(matches[0])
	if strings.Contains(string(content), "dropped by level") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(string(content), "[WARN] kept") {
		t.Errorf("warn message missing: %q", content)
	}
}

func TestJSONFormat(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(Options{Dir: dir, DebugMode: true, Level: "info", JSONFormat: true}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { _ = Initialize(Options{}) })

	Get(CategoryAssembly).StructuredLog("info", "layout", map[string]interface{}{"rows": 4})
	CloseAll()

	matches, _ := filepath.Glob(filepath.Join(dir, "*_assembly.log"))
	if len(matches) != 1 {
		t.Fatalf("expected one assembly log, got %v", matches)
	}
	content, _ := os.ReadFile(matches[0])
	line := string(content)
	idx := strings.Index(line, "{")
	if idx < 0 {
		t.Fatalf("no JSON in %q", line)
	}
	var entry StructuredLogEntry
	if err := json.Unmarshal([]byte(strings.TrimSpace(line[idx:])), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry.Category != "assembly" || entry.Message != "layout" {
		t.Errorf("unexpected entry %+v", entry)
	}
}

func TestConcurrentLogging(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(Options{Dir: dir, DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { _ = Initialize(Options{}) })

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			DiscoveryDebug("worker %d", n)
		}(i)
	}
	wg.Wait()
}

func TestAuditOperation(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(Options{Dir: dir, DebugMode: true}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { _ = Initialize(Options{}) })

	audit := AuditWithSession("s-1")
	audit.Operation(AuditPuzzleUpload, time.Now(), nil, map[string]interface{}{"fragments": 20})
	audit.Operation(AuditPuzzleAssemble, time.Now(), errors.New("boom"), nil)
	CloseAudit()

	matches, _ := filepath.Glob(filepath.Join(dir, "*_audit.jsonl"))
	if len(matches) != 1 {
		t.Fatalf("expected audit file, got %v", matches)
	}
	content, _ := os.ReadFile(matches[0])
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 audit lines, got %d", len(lines))
	}

	var ev AuditEvent
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.SessionID != "s-1" || ev.Success || ev.Error != "boom" || ev.EventType != AuditPuzzleAssemble {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestTimer(t *testing.T) {
	timer := StartTimer(CategoryDiscovery, "noop")
	if d := timer.StopWithThreshold(time.Hour); d < 0 {
		t.Errorf("negative duration %v", d)
	}
}
