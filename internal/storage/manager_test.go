// manager_test.go - Tests for storage layer
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sat-practice/backend/internal/models"
)

func createTestStore(t *testing.T) *LocalStore {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store
}

func TestNewLocalStore(t *testing.T) {
	t.Run("creates upload directory", func(t *testing.T) {
		uploadDir := filepath.Join(t.TempDir(), "uploads")

		if _, err := NewLocalStore(uploadDir); err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}

		if _, err := os.Stat(uploadDir); os.IsNotExist(err) {
			t.Error("Expected upload directory to be created")
		}
	})
}

func TestClassifyFile(t *testing.T) {
	tests := []struct {
		name string
		want models.FileKind
	}{
		{"june_s1m1_q3.png", models.FileKindImage},
		{"Q3.JPEG", models.FileKindImage},
		{"diagram.svg", models.FileKindImage},
		{"test.txt", models.FileKindTestSource},
		{"no-extension", models.FileKindTestSource},
	}
	for _, tt := range tests {
		if got := ClassifyFile(tt.name); got != tt.want {
			t.Errorf("ClassifyFile(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestLocalStore_Save(t *testing.T) {
	t.Run("saves test source", func(t *testing.T) {
		store := createTestStore(t)

		content := "QUESTION_SECTION:::Math"
		info, err := store.Save("june.txt", strings.NewReader(content))
		if err != nil {
			t.Fatalf("Failed to save file: %v", err)
		}

		if info.ID == "" {
			t.Error("Expected ID to be set")
		}
		if info.Name != "june.txt" {
			t.Errorf("Expected name 'june.txt', got %v", info.Name)
		}
		if info.Kind != models.FileKindTestSource {
			t.Errorf("Expected test-source kind, got %v", info.Kind)
		}
		if info.Size != int64(len(content)) {
			t.Errorf("Expected size %d, got %d", len(content), info.Size)
		}
		if info.Status != "uploaded" {
			t.Errorf("Expected status 'uploaded', got %v", info.Status)
		}

		path, _ := store.GetFilePath(info.ID)
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("Failed to read saved file: %v", err)
		}
		if string(data) != content {
			t.Errorf("Expected content %q, got %q", content, string(data))
		}
	})

	t.Run("strips directories from names", func(t *testing.T) {
		store := createTestStore(t)

		info, err := store.Save("../../etc/q1.png", strings.NewReader("png"))
		if err != nil {
			t.Fatalf("Failed to save file: %v", err)
		}
		if info.Name != "q1.png" {
			t.Errorf("Expected name 'q1.png', got %v", info.Name)
		}
		if info.Kind != models.FileKindImage {
			t.Errorf("Expected image kind, got %v", info.Kind)
		}
	})

	t.Run("reader error removes partial file", func(t *testing.T) {
		store := createTestStore(t)

		_, err := store.Save("bad.txt", &failingReader{})
		if err == nil {
			t.Fatal("Expected error from failing reader")
		}

		entries, _ := os.ReadDir(store.uploadDir)
		if len(entries) != 0 {
			t.Errorf("Expected no files left behind, found %d", len(entries))
		}
	})
}

func TestLocalStore_GetReturnsCopy(t *testing.T) {
	store := createTestStore(t)
	info, _ := store.Save("a.txt", strings.NewReader("a"))

	got, err := store.Get(info.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	got.Name = "mutated"

	again, _ := store.Get(info.ID)
	if again.Name != "a.txt" {
		t.Errorf("Expected stored name to be unchanged, got %v", again.Name)
	}

	if _, err := store.Get("missing"); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLocalStore_List(t *testing.T) {
	store := createTestStore(t)

	for i := 0; i < 3; i++ {
		if _, err := store.Save(fmt.Sprintf("file%d.txt", i), strings.NewReader("x")); err != nil {
			t.Fatal(err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	all, _ := store.List(0)
	if len(all) != 3 {
		t.Fatalf("Expected 3 files, got %d", len(all))
	}
	if all[0].Name != "file2.txt" {
		t.Errorf("Expected newest first, got %v", all[0].Name)
	}

	limited, _ := store.List(2)
	if len(limited) != 2 {
		t.Errorf("Expected 2 files, got %d", len(limited))
	}
}

func TestLocalStore_Delete(t *testing.T) {
	store := createTestStore(t)
	info, _ := store.Save("a.txt", strings.NewReader("a"))
	path, _ := store.GetFilePath(info.ID)

	if err := store.Delete(info.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected file to be removed from disk")
	}
	if err := store.Delete(info.ID); err == nil {
		t.Error("Expected error deleting twice")
	}
	if _, err := store.GetFilePath(info.ID); err == nil {
		t.Error("Expected error for deleted file path")
	}
}

func TestLocalStore_SetStatus(t *testing.T) {
	store := createTestStore(t)
	info, _ := store.Save("a.txt", strings.NewReader("a"))

	if err := store.SetStatus(info.ID, "parsed"); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	got, _ := store.Get(info.ID)
	if got.Status != "parsed" {
		t.Errorf("Expected status 'parsed', got %v", got.Status)
	}
	if err := store.SetStatus("missing", "parsed"); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLocalStore_ConcurrentAccess(t *testing.T) {
	store := createTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			info, err := store.Save(fmt.Sprintf("f%d.txt", i), strings.NewReader("data"))
			if err != nil {
				t.Errorf("Save failed: %v", err)
				return
			}
			store.Get(info.ID)
			store.List(5)
		}(i)
	}
	wg.Wait()

	all, _ := store.List(0)
	if len(all) != 20 {
		t.Errorf("Expected 20 files, got %d", len(all))
	}
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("read failed")
}
