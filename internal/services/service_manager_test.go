package services

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/gohanrohith/ed/internal/validator"
)

func TestServiceManager_Lifecycle(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	sm := NewDefaultServiceManager(nil, newMockRepo(), logger, validator.New(), nil)

	if err := sm.HealthCheck(ctx); err == nil {
		t.Error("expected a health check failure before Initialize")
	}

	if err := sm.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := sm.Initialize(ctx); err != nil {
		t.Fatalf("repeated Initialize should be a no-op: %v", err)
	}
	if err := sm.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}

	if sm.Assignment() == nil || sm.Question() == nil || sm.Progress() == nil ||
		sm.Curriculum() == nil || sm.Student() == nil || sm.ImportExport() == nil {
		t.Error("expected all services to be available after Initialize")
	}

	if err := sm.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if err := sm.HealthCheck(ctx); err == nil {
		t.Error("expected a health check failure after Shutdown")
	}
}

func TestServiceManagerConfig_Validate(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	sm := NewDefaultServiceManager(nil, newMockRepo(), logger, validator.New(), nil)

	manager, ok := sm.(*serviceManager)
	if !ok {
		t.Fatal("unexpected service manager implementation")
	}

	config := manager.GetConfig()
	if err := config.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	config.Session.TotalQuestions = 0
	if err := config.Validate(); err == nil {
		t.Error("expected a validation error for zero questions per session")
	}
}
