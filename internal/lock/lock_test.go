package lock

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lensview/lensview/internal/testutil"
)

func TestNewFileLock(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	lock, err := NewFileLock(dir)
	if err != nil {
		t.Fatalf("NewFileLock failed: %v", err)
	}

	expectedPath := filepath.Join(dir, LockFileName)
	if lock.lockPath != expectedPath {
		t.Errorf("expected lock path %s, got %s", expectedPath, lock.lockPath)
	}

	if lock.staleTimeout != DefaultStaleTimeout {
		t.Errorf("expected timeout %v, got %v", DefaultStaleTimeout, lock.staleTimeout)
	}
}

func TestNewFileLock_EmptyDir(t *testing.T) {
	if _, err := NewFileLock(""); err == nil {
		t.Error("expected error for empty staging directory")
	}
}

func TestNewFileLock_CreatesDirectory(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	staging := filepath.Join(dir, "nested", "staging")
	if _, err := NewFileLock(staging); err != nil {
		t.Fatalf("NewFileLock failed: %v", err)
	}

	if _, err := os.Stat(staging); err != nil {
		t.Errorf("staging directory was not created: %v", err)
	}
}

func TestAcquireRelease(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	lock, err := NewFileLock(dir)
	if err != nil {
		t.Fatalf("NewFileLock failed: %v", err)
	}

	if err := lock.Acquire("ssh://git@example.com/media.git"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if _, err := os.Stat(lock.lockPath); os.IsNotExist(err) {
		t.Error("lock file does not exist after acquire")
	}

	if !lock.IsLocked() {
		t.Error("lock should be held")
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	if _, err := os.Stat(lock.lockPath); !os.IsNotExist(err) {
		t.Error("lock file still exists after release")
	}

	if lock.IsLocked() {
		t.Error("lock should not be held after release")
	}
}

func TestAcquireTwice_SameProcess(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	lock, err := NewFileLock(dir)
	if err != nil {
		t.Fatalf("NewFileLock failed: %v", err)
	}

	if err := lock.Acquire("target-1"); err != nil {
		t.Fatalf("First Acquire failed: %v", err)
	}
	defer lock.Release()

	// Re-acquire from the same instance updates the target.
	if err := lock.Acquire("target-2"); err != nil {
		t.Fatalf("Second Acquire by same process should succeed: %v", err)
	}

	holder, err := lock.GetHolder()
	if err != nil {
		t.Fatalf("GetHolder failed: %v", err)
	}
	if holder.Target != "target-2" {
		t.Errorf("expected target 'target-2', got '%s'", holder.Target)
	}
}

func TestAcquire_HeldByOtherInstance(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	first, err := NewFileLock(dir)
	if err != nil {
		t.Fatalf("NewFileLock failed: %v", err)
	}
	if err := first.Acquire("target"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer first.Release()

	second, err := NewFileLock(dir)
	if err != nil {
		t.Fatalf("NewFileLock failed: %v", err)
	}

	err = second.Acquire("target")
	if err == nil {
		second.Release()
		t.Fatal("second Acquire should fail while lock is held")
	}
	if !IsLockError(err) {
		t.Errorf("expected LockError, got %T: %v", err, err)
	}
}

func TestConcurrentAcquire(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	const goroutines = 10
	var wg sync.WaitGroup
	acquired := make([]bool, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			lock, err := NewFileLock(dir)
			if err != nil {
				return
			}
			if err := lock.Acquire("target"); err == nil {
				acquired[idx] = true
			}
		}(i)
	}
	wg.Wait()

	count := 0
	for _, ok := range acquired {
		if ok {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly 1 successful acquire, got %d", count)
	}
}

func TestStaleLock_ForeignHost(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	lock, err := NewFileLock(dir)
	if err != nil {
		t.Fatalf("NewFileLock failed: %v", err)
	}
	lock.SetStaleTimeout(50 * time.Millisecond)

	// A lock written by another host long ago is stale after timeout.
	stale := &LockInfo{
		PID:       99999,
		Hostname:  "some-other-host",
		StartTime: time.Now().Add(-time.Hour),
		Target:    "target",
	}
	if err := lock.writeLockInfo(stale); err != nil {
		t.Fatalf("writeLockInfo failed: %v", err)
	}

	if err := lock.Acquire("target"); err != nil {
		t.Fatalf("Acquire over stale lock should succeed: %v", err)
	}
	defer lock.Release()
}

func TestStaleLock_DeadProcess(t *testing.T) {
	dir, cleanup := testutil.TempDir(t)
	defer cleanup()

	lock, err := NewFileLock(dir)
	if err != nil {
		t.Fatalf("NewFileLock failed: %v", err)
	}

	hostname, _ := os.Hostname()
	// PID beyond the usual pid_max is not a live process.
	dead := &LockInfo{
		PID:       1 << 22,
		Hostname:  hostname,
		StartTime: time.Now(),
		Target:    "target",
	}
	if err := lock.writeLockInfo(dead); err != nil {
		t.Fatalf("writeLockInfo failed: %v", err)
	}

	if err := lock.Acquire("target"); err != nil {
		t.Fatalf("Acquire over dead-process lock should succeed: %v", err)
	}
	defer lock.Release()
}

func TestLockError_Message(t *testing.T) {
	err := &LockError{
		Holder: &LockInfo{PID: 42, Hostname: "h", StartTime: time.Now(), Target: "repo"},
		Reason: "lock is held by another process",
	}
	if err.Error() == "" {
		t.Error("LockError message should not be empty")
	}
}
