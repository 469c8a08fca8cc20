package app

import (
	"errors"
	"testing"
	"time"

	"commentary/api/internal/store"
)

func flatComment(id int64, parent *int64, created time.Time) store.Comment {
	return store.Comment{
		ID:      id,
		Parent:  parent,
		Created: created,
		Text:    "text",
	}
}

func ptr(v int64) *int64 { return &v }

func TestBuildForestNestsChildrenUnderParents(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := []store.Comment{
		flatComment(1, nil, base),
		flatComment(2, ptr(1), base.Add(time.Minute)),
		flatComment(3, ptr(1), base.Add(2*time.Minute)),
		flatComment(4, ptr(2), base.Add(3*time.Minute)),
	}

	forest, err := buildForest(rows)
	if err != nil {
		t.Fatalf("buildForest failed: %v", err)
	}

	if len(forest) != 1 {
		t.Fatalf("expected 1 root, got %d", len(forest))
	}
	root := forest[0]
	if root.ID != 1 {
		t.Errorf("expected root id 1, got %d", root.ID)
	}
	if len(root.Children) != 2 || root.Children[0].ID != 2 || root.Children[1].ID != 3 {
		t.Fatalf("expected children [2 3] under root, got %+v", root.Children)
	}
	if len(root.Children[0].Children) != 1 || root.Children[0].Children[0].ID != 4 {
		t.Errorf("expected comment 4 under comment 2, got %+v", root.Children[0].Children)
	}
	if len(root.Children[1].Children) != 0 {
		t.Errorf("expected no children under comment 3")
	}
}

func TestBuildForestOrdersSiblingsOldestFirst(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := []store.Comment{
		flatComment(5, nil, base.Add(2*time.Minute)),
		flatComment(9, nil, base),
		flatComment(7, nil, base.Add(time.Minute)),
	}

	forest, err := buildForest(rows)
	if err != nil {
		t.Fatalf("buildForest failed: %v", err)
	}

	if len(forest) != 3 {
		t.Fatalf("expected 3 roots, got %d", len(forest))
	}
	for i, want := range []int64{9, 7, 5} {
		if forest[i].ID != want {
			t.Errorf("root %d: expected id %d, got %d", i, want, forest[i].ID)
		}
	}
}

func TestBuildForestPromotesOrphansToRoots(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := []store.Comment{
		flatComment(1, nil, base),
		// parent 99 is not in the set
		flatComment(2, ptr(99), base.Add(time.Minute)),
	}

	forest, err := buildForest(rows)
	if err != nil {
		t.Fatalf("buildForest failed: %v", err)
	}

	if len(forest) != 2 {
		t.Fatalf("expected orphan promoted to root, got %d roots", len(forest))
	}
	if forest[1].ID != 2 {
		t.Errorf("expected orphan 2 as second root, got %d", forest[1].ID)
	}
}

func TestBuildForestDetectsParentCycle(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := []store.Comment{
		flatComment(1, ptr(2), base),
		flatComment(2, ptr(1), base.Add(time.Minute)),
	}

	_, err := buildForest(rows)
	if err == nil {
		t.Fatal("expected error for cyclic parent links")
	}
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "DATA_INTEGRITY" {
		t.Errorf("expected DATA_INTEGRITY error, got %v", err)
	}
}

func TestBuildForestEmptyInput(t *testing.T) {
	forest, err := buildForest(nil)
	if err != nil {
		t.Fatalf("buildForest failed: %v", err)
	}
	if forest == nil || len(forest) != 0 {
		t.Errorf("expected empty non-nil forest, got %#v", forest)
	}
}
