package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCleanupOldLogsHonorsPatternAndExclusions(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().AddDate(0, 0, -10)

	write := func(name string, mod time.Time) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if err := os.Chtimes(path, mod, mod); err != nil {
			t.Fatalf("chtimes %s: %v", name, err)
		}
		return path
	}

	stale := write("timelapse-20250101T000000.000Z.log", old)
	current := write("timelapse-20250102T000000.000Z.log", old)
	fresh := write("timelapse-20990101T000000.000Z.log", time.Now())
	other := write("notes.txt", old)

	CleanupOldLogs(NewNop(), 7, RetentionTarget{Dir: dir, Pattern: "timelapse-*.log", Exclude: []string{current}})

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale log removed, stat err=%v", err)
	}
	for _, keep := range []string{current, fresh, other} {
		if _, err := os.Stat(keep); err != nil {
			t.Fatalf("expected %s to remain: %v", keep, err)
		}
	}
}

func TestCleanupOldLogsDisabled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "timelapse-old.log")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	old := time.Now().AddDate(-1, 0, 0)
	_ = os.Chtimes(path, old, old)

	CleanupOldLogs(nil, 0, RetentionTarget{Dir: dir})
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to remain when retention disabled: %v", err)
	}
}
