package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	s.SetHashCost(bcrypt.MinCost)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoadProgram(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.SaveProgram(ctx, "alice", " house ", "moveto 1 1")
	if err != nil {
		t.Fatalf("SaveProgram failed: %v", err)
	}
	if p.ID == "" || p.Name != "house" {
		t.Fatalf("Unexpected program %+v", p)
	}

	again, err := s.SaveProgram(ctx, "alice", "house", "circle 5")
	if err != nil {
		t.Fatalf("Second SaveProgram failed: %v", err)
	}
	if again.ID != p.ID {
		t.Errorf("Expected overwrite to keep id %s, got %s", p.ID, again.ID)
	}

	loaded, err := s.LoadProgram(ctx, p.ID, "alice")
	if err != nil {
		t.Fatalf("LoadProgram failed: %v", err)
	}
	if loaded.Source != "circle 5" {
		t.Errorf("Expected updated source, got %q", loaded.Source)
	}

	if _, err := s.LoadProgram(ctx, p.ID, "bob"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for another owner, got %v", err)
	}
	byName, err := s.LoadProgramByName(ctx, "alice", "house")
	if err != nil || byName.ID != p.ID {
		t.Errorf("LoadProgramByName = %+v, %v", byName, err)
	}

	if _, err := s.SaveProgram(ctx, "alice", "  ", "x"); !errors.Is(err, ErrNameRequired) {
		t.Errorf("Expected ErrNameRequired, got %v", err)
	}
}

func TestListAndDeletePrograms(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, item := range []struct{ owner, name string }{
		{"alice", "zebra"}, {"alice", "apple"}, {"guest", "spiral"}, {"bob", "secret"},
	} {
		if _, err := s.SaveProgram(ctx, item.owner, item.name, "reset"); err != nil {
			t.Fatalf("SaveProgram failed: %v", err)
		}
	}

	list, err := s.ListPrograms(ctx, "alice", "guest")
	if err != nil {
		t.Fatalf("ListPrograms failed: %v", err)
	}
	var names []string
	for _, p := range list {
		names = append(names, p.Owner+"/"+p.Name)
	}
	expected := []string{"alice/apple", "alice/zebra", "guest/spiral"}
	if len(names) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, names)
	}
	for i := range expected {
		if names[i] != expected[i] {
			t.Errorf("Entry %d = %s, want %s", i, names[i], expected[i])
		}
	}

	if err := s.DeleteProgram(ctx, "bob", list[0].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Deleting another owner's program should fail, got %v", err)
	}
	if err := s.DeleteProgram(ctx, "alice", list[0].ID); err != nil {
		t.Fatalf("DeleteProgram failed: %v", err)
	}
	if _, err := s.LoadProgram(ctx, list[0].ID, "alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected deleted program to be gone, got %v", err)
	}
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, "alice", "secret1"); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if err := s.CreateUser(ctx, "alice", "other"); !errors.Is(err, ErrUserExists) {
		t.Errorf("Expected ErrUserExists, got %v", err)
	}

	if err := s.Authenticate(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
	if n, _ := s.LoginAttempts(ctx, "alice"); n != 1 {
		t.Errorf("Expected 1 failed attempt, got %d", n)
	}
	if err := s.Authenticate(ctx, "alice", "secret1"); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if n, _ := s.LoginAttempts(ctx, "alice"); n != 0 {
		t.Errorf("Expected attempts reset after login, got %d", n)
	}
	if err := s.Authenticate(ctx, "nobody", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for unknown user, got %v", err)
	}

	s.SetUserActive(ctx, "alice", false)
	if err := s.Authenticate(ctx, "alice", "secret1"); !errors.Is(err, ErrInactiveUser) {
		t.Errorf("Expected ErrInactiveUser, got %v", err)
	}
}
