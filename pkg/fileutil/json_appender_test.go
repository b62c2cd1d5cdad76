package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

type entry struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestAppendKeepsValidArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "transcript.json")
	ja, err := NewJSONAppender[entry](path)
	if err != nil {
		t.Fatalf("new appender: %v", err)
	}
	if err := ja.Append(entry{ID: 1, Name: "a"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := ja.AppendBatch([]entry{{ID: 2, Name: "b"}, {ID: 3, Name: "c"}}); err != nil {
		t.Fatalf("append batch: %v", err)
	}
	if err := ja.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got, err := ReadAll[entry](path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 3 || got[0].Name != "a" || got[2].ID != 3 {
		t.Fatalf("unexpected entries %+v", got)
	}
}

func TestReopenContinuesArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.json")
	for i := 1; i <= 2; i++ {
		ja, err := NewJSONAppender[entry](path, WithoutSync[entry]())
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		if err := ja.Append(entry{ID: i}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		ja.Close()
	}
	got, err := ReadAll[entry](path)
	if err != nil || len(got) != 2 {
		t.Fatalf("expected 2 entries, got %+v (%v)", got, err)
	}
}

func TestConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.json")
	ja, err := NewJSONAppender[entry](path, WithoutSync[entry]())
	if err != nil {
		t.Fatalf("new appender: %v", err)
	}
	defer ja.Close()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := ja.Append(entry{ID: id}); err != nil {
				t.Errorf("append %d: %v", id, err)
			}
		}(i)
	}
	wg.Wait()
	got, err := ReadAll[entry](path)
	if err != nil || len(got) != 20 {
		t.Fatalf("expected 20 entries, got %d (%v)", len(got), err)
	}
}

func TestRejectsNonArrayFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"not": "an array"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewJSONAppender[entry](path); !errors.Is(err, ErrMissingOpen) {
		t.Fatalf("expected missing bracket error, got %v", err)
	}
}

func TestAppendAfterCloseFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.json")
	ja, err := NewJSONAppender[entry](path)
	if err != nil {
		t.Fatalf("new appender: %v", err)
	}
	ja.Close()
	if err := ja.Append(entry{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
}

func TestReadAllMissingFile(t *testing.T) {
	got, err := ReadAll[entry](filepath.Join(t.TempDir(), "none.json"))
	if err != nil || got != nil {
		t.Fatalf("expected empty read, got %+v (%v)", got, err)
	}
}
