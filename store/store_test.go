package store

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/rushteam/movieprofile/core"
)

func exerciseStore(t *testing.T, s core.Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !core.IsStoreNotFound(err) {
		t.Fatalf("Get(missing) error = %v, want store not found", err)
	}

	value := []byte(`{"id":"u1"}`)
	if err := s.Set(ctx, "profile:u1", value); err != nil {
		t.Fatalf("Set: %v", err)
	}
	// 调用方复用缓冲区不能影响已存储的值
	value[0] = 'x'

	got, err := s.Get(ctx, "profile:u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, []byte(`{"id":"u1"}`)) {
		t.Errorf("Get = %s", got)
	}

	if err := s.Set(ctx, "profile:u1", []byte("v2")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, _ = s.Get(ctx, "profile:u1")
	if string(got) != "v2" {
		t.Errorf("after overwrite Get = %s, want v2", got)
	}

	if err := s.Delete(ctx, "profile:u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "profile:u1"); !core.IsNotFound(err) {
		t.Errorf("Get after delete error = %v, want not found", err)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	if s.Name() != "memory" {
		t.Errorf("Name = %q", s.Name())
	}
	exerciseStore(t, s)
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestBadgerStore_InMemory(t *testing.T) {
	s, err := NewBadgerStore("")
	if err != nil {
		t.Fatalf("NewBadgerStore: %v", err)
	}
	defer s.Close()

	if s.Name() != "badger" {
		t.Errorf("Name = %q", s.Name())
	}
	exerciseStore(t, s)
}

func TestBadgerStore_OnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewBadgerStore(dir)
	if err != nil {
		t.Fatalf("NewBadgerStore: %v", err)
	}
	if err := s.Set(ctx, "profile:u1", []byte("snapshot")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewBadgerStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, "profile:u1")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if string(got) != "snapshot" {
		t.Errorf("Get = %s, want snapshot", got)
	}
}

func TestRedisStore_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := NewRedisStore(ctx, "127.0.0.1:1", 0)
	if err == nil {
		t.Fatal("expected error connecting to closed port")
	}
	if !core.IsUnavailable(err) {
		t.Errorf("error = %v, want unavailable", err)
	}
}

// flakyStore 在 fail 为 true 时所有写操作失败
type flakyStore struct {
	*MemoryStore
	fail bool
}

var errBackend = errors.New("backend down")

func (f *flakyStore) Set(ctx context.Context, key string, value []byte) error {
	if f.fail {
		return errBackend
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func TestBreakerStore_PassThrough(t *testing.T) {
	s := NewBreakerStore(NewMemoryStore(), BreakerConfig{})
	defer s.Close()

	if s.Name() != "memory" {
		t.Errorf("Name = %q, want inner name", s.Name())
	}
	exerciseStore(t, s)
	if s.State() != gobreaker.StateClosed {
		t.Errorf("State = %v, want closed", s.State())
	}
}

func TestBreakerStore_NotFoundDoesNotTrip(t *testing.T) {
	s := NewBreakerStore(NewMemoryStore(), BreakerConfig{ConsecutiveFailures: 2})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := s.Get(ctx, "missing"); !core.IsNotFound(err) {
			t.Fatalf("Get #%d error = %v, want not found", i, err)
		}
	}
	if s.State() != gobreaker.StateClosed {
		t.Errorf("State = %v, want closed", s.State())
	}
}

func TestBreakerStore_OpensAfterFailures(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore(), fail: true}
	s := NewBreakerStore(inner, BreakerConfig{
		Name:                "test-open",
		ConsecutiveFailures: 3,
		Timeout:             time.Hour,
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := s.Set(ctx, "k", []byte("v"))
		if !errors.Is(err, errBackend) {
			t.Fatalf("Set #%d error = %v, want backend error", i, err)
		}
	}
	if s.State() != gobreaker.StateOpen {
		t.Fatalf("State = %v, want open", s.State())
	}

	// 熔断打开后直接拒绝，不再调用后端
	inner.fail = false
	err := s.Set(ctx, "k", []byte("v"))
	if !core.IsUnavailable(err) {
		t.Errorf("error = %v, want unavailable", err)
	}
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("error should wrap gobreaker.ErrOpenState, got %v", err)
	}
	if inner.Len() != 0 {
		t.Errorf("inner store was written while breaker open")
	}
}
