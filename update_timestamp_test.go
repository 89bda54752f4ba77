package paranoia_test

import (
	"context"
	"testing"
	"time"

	paranoia "github.com/dailaim/paranoia-gorm"
)

func TestMarkerWritesKeepUpdatedAt(t *testing.T) {
	db := setupDB(t)
	repo, err := paranoia.NewRepository[ParanoidModel](db)
	if err != nil {
		t.Fatalf("Failed to build repository: %v", err)
	}
	ctx := context.Background()

	model := ParanoidModel{Name: "TimestampTest"}
	if err := repo.Create(ctx, &model); err != nil {
		t.Fatalf("Failed to create model: %v", err)
	}

	initialUpdatedAt := model.UpdatedAt
	if initialUpdatedAt.IsZero() {
		t.Fatal("Expected initial UpdatedAt to be set")
	}

	time.Sleep(10 * time.Millisecond)

	if err := repo.Delete(ctx, &model); err != nil {
		t.Fatalf("Failed to delete model: %v", err)
	}

	deleted, err := repo.FindDeleted(ctx, model.ID)
	if err != nil {
		t.Fatalf("Failed to fetch deleted model: %v", err)
	}
	if !deleted.UpdatedAt.Equal(initialUpdatedAt) {
		t.Errorf("Soft delete touched UpdatedAt: %v != %v", deleted.UpdatedAt, initialUpdatedAt)
	}

	if err := repo.Restore(ctx, deleted); err != nil {
		t.Fatalf("Failed to restore model: %v", err)
	}

	restored, err := repo.First(ctx, model.ID)
	if err != nil {
		t.Fatalf("Failed to fetch restored model: %v", err)
	}
	if !restored.UpdatedAt.Equal(initialUpdatedAt) {
		t.Errorf("Restore touched UpdatedAt: %v != %v", restored.UpdatedAt, initialUpdatedAt)
	}

	// an ordinary save still bumps it
	restored.Name = "Renamed"
	if err := repo.Save(ctx, restored); err != nil {
		t.Fatalf("Failed to save model: %v", err)
	}
	if !restored.UpdatedAt.After(initialUpdatedAt) {
		t.Errorf("New UpdatedAt should be after initial UpdatedAt")
	}
}
