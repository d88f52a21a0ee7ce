package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"placementcell/internal/common"
)

func TestLocalStoreSaveOpenRemove(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	path, err := store.Save(ctx, "resumes", ".PDF", strings.NewReader("%PDF-1.4 body"), 1024)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(path, "resumes/") || !strings.HasSuffix(path, ".pdf") {
		t.Fatalf("unexpected path %q", path)
	}
	rc, err := store.Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if string(body) != "%PDF-1.4 body" {
		t.Fatalf("unexpected body %q", body)
	}
	if err := store.Remove(ctx, path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := store.Open(ctx, path); !common.Is(err, common.CodeNotFound) {
		t.Fatalf("expected not found after remove, got %v", err)
	}
}

func TestLocalStoreRejectsOversizedFile(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	_, err = store.Save(context.Background(), "logos", ".png", strings.NewReader(strings.Repeat("x", 11)), 10)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected too large, got %v", err)
	}
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := store.Open(context.Background(), "../../etc/passwd"); !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := store.Save(context.Background(), "../outside", ".txt", strings.NewReader("x"), 10); err == nil {
		t.Fatal("expected error for traversal dir")
	}
}
