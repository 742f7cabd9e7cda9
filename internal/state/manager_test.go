package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lensview/lensview/internal/domain"
)

func sftpDescriptor() domain.ConnectionDescriptor {
	return domain.ConnectionDescriptor{
		Kind:     domain.BackendRemoteFS,
		Host:     "example.com",
		Port:     22,
		Username: "ubuntu",
	}
}

func mirrorDescriptor() domain.ConnectionDescriptor {
	return domain.ConnectionDescriptor{
		Kind:        domain.BackendRepoMirror,
		RepoURL:     "ssh://git@example.com/media.git",
		Branch:      "main",
		StagingPath: "/var/lib/lensview/staging",
	}
}

func TestNewManager(t *testing.T) {
	tmpDir := t.TempDir()

	manager, err := NewManager(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	defer manager.Close()

	if manager.db == nil {
		t.Error("Database connection is nil")
	}

	dbPath := filepath.Join(tmpDir, "lensview.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestNewManager_EmptyDir(t *testing.T) {
	_, err := NewManager("")
	if err == nil {
		t.Error("Expected error for empty directory, got nil")
	}
}

func TestSaveAndGetProfiles(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	defer manager.Close()

	record := ProfileRecord{
		Descriptor:  sftpDescriptor(),
		ConnectedAt: time.Now().Add(-10 * time.Minute),
		Status:      "success",
	}
	if err := manager.SaveProfile(record); err != nil {
		t.Fatalf("Failed to save profile: %v", err)
	}

	history, err := manager.GetRecent(10)
	if err != nil {
		t.Fatalf("Failed to get history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(history))
	}

	retrieved := history[0]
	if retrieved.Descriptor.Kind != domain.BackendRemoteFS {
		t.Errorf("Expected kind %s, got %s", domain.BackendRemoteFS, retrieved.Descriptor.Kind)
	}
	if retrieved.Descriptor.Host != "example.com" {
		t.Errorf("Expected host example.com, got %s", retrieved.Descriptor.Host)
	}
	if retrieved.Descriptor.Username != "ubuntu" {
		t.Errorf("Expected username ubuntu, got %s", retrieved.Descriptor.Username)
	}
	if retrieved.Status != "success" {
		t.Errorf("Expected status success, got %s", retrieved.Status)
	}
}

func TestSaveProfile_InvalidStatus(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	defer manager.Close()

	record := ProfileRecord{
		Descriptor:  sftpDescriptor(),
		ConnectedAt: time.Now(),
		Status:      "pending",
	}
	if err := manager.SaveProfile(record); err == nil {
		t.Error("Expected error for invalid status, got nil")
	}
}

func TestGetRecent_Ordering(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	defer manager.Close()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		record := ProfileRecord{
			Descriptor:  sftpDescriptor(),
			ConnectedAt: base.Add(time.Duration(i) * time.Minute),
			Status:      "success",
		}
		record.Descriptor.Host = record.Descriptor.Host + string(rune('a'+i))
		if err := manager.SaveProfile(record); err != nil {
			t.Fatalf("Failed to save profile: %v", err)
		}
	}

	history, err := manager.GetRecent(2)
	if err != nil {
		t.Fatalf("Failed to get history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(history))
	}
	if !history[0].ConnectedAt.After(history[1].ConnectedAt) {
		t.Error("Records not ordered newest first")
	}
}

func TestGetRecent_InvalidLimit(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	defer manager.Close()

	if _, err := manager.GetRecent(0); err == nil {
		t.Error("Expected error for zero limit, got nil")
	}
}

func TestGetLastSuccess(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	defer manager.Close()

	// Empty database: no record, no error.
	last, err := manager.GetLastSuccess()
	if err != nil {
		t.Fatalf("GetLastSuccess failed: %v", err)
	}
	if last != nil {
		t.Fatalf("Expected nil record, got %+v", last)
	}

	failed := ProfileRecord{
		Descriptor:  mirrorDescriptor(),
		ConnectedAt: time.Now(),
		Status:      "failed",
		Error:       "authentication rejected",
	}
	if err := manager.SaveProfile(failed); err != nil {
		t.Fatalf("Failed to save profile: %v", err)
	}

	success := ProfileRecord{
		Descriptor:  mirrorDescriptor(),
		ConnectedAt: time.Now().Add(-time.Minute),
		Status:      "success",
	}
	if err := manager.SaveProfile(success); err != nil {
		t.Fatalf("Failed to save profile: %v", err)
	}

	last, err = manager.GetLastSuccess()
	if err != nil {
		t.Fatalf("GetLastSuccess failed: %v", err)
	}
	if last == nil {
		t.Fatal("Expected a record, got nil")
	}
	if last.Status != "success" {
		t.Errorf("Expected success record, got %s", last.Status)
	}
	if last.Descriptor.RepoURL != "ssh://git@example.com/media.git" {
		t.Errorf("Descriptor round-trip failed: %+v", last.Descriptor)
	}
	if last.Descriptor.Branch != "main" {
		t.Errorf("Branch round-trip failed: %s", last.Descriptor.Branch)
	}
}
