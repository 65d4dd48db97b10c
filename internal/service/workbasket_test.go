package service

import (
	"context"
	"errors"
	"testing"

	"github.com/taskdesk/taskdesk/internal/domain"
	"github.com/taskdesk/taskdesk/internal/domain/task"
	"github.com/taskdesk/taskdesk/internal/domain/workbasket"
	"github.com/taskdesk/taskdesk/internal/port/messagequeue"
	"github.com/taskdesk/taskdesk/internal/query"
)

func validWorkbasketRequest() workbasket.CreateRequest {
	return workbasket.CreateRequest{
		Key:    "TEAM-B",
		Domain: "DOMAIN_A",
		Name:   "team B inbox",
		Type:   workbasket.TypeGroup,
	}
}

func TestCreateWorkbasket(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	w, err := f.baskets.Create(ctx, adminP, validWorkbasketRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if w.ID == "" {
		t.Fatal("expected generated id")
	}
	if got := f.queue.subjects(); len(got) != 1 || got[0] != messagequeue.SubjectWorkbasketCreated {
		t.Fatalf("expected created event, got %v", got)
	}
}

func TestCreateWorkbasketRequiresAdmin(t *testing.T) {
	f := newFixture()
	if _, err := f.baskets.Create(context.Background(), clerkP, validWorkbasketRequest()); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestCreateWorkbasketDuplicateKey(t *testing.T) {
	f := newFixture()
	f.seedWorkbasket("wb-1", "TEAM-B")
	req := validWorkbasketRequest()
	req.Key = "team-b" // uniqueness is case-insensitive

	if _, err := f.baskets.Create(context.Background(), adminP, req); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreateWorkbasketInvalidType(t *testing.T) {
	f := newFixture()
	req := validWorkbasketRequest()
	req.Type = "pile"
	if _, err := f.baskets.Create(context.Background(), adminP, req); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestGetWorkbasketRequiresRead(t *testing.T) {
	f := newFixture()
	f.seedWorkbasket("wb-1", "TEAM-A") // no access items

	if _, err := f.baskets.Get(context.Background(), clerkP, "wb-1"); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if _, err := f.baskets.Get(context.Background(), adminP, "wb-1"); err != nil {
		t.Fatalf("admin read: %v", err)
	}
}

func TestUpdateWorkbasketImmutableKey(t *testing.T) {
	f := newFixture()
	seeded := f.seedWorkbasket("wb-1", "TEAM-A")

	upd := *seeded
	upd.Key = "RENAMED"
	upd.Name = "renamed"
	got, err := f.baskets.Update(context.Background(), adminP, &upd)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Key != "TEAM-A" {
		t.Fatalf("key must be immutable, got %q", got.Key)
	}
	if got.Name != "renamed" {
		t.Fatalf("name not updated: %q", got.Name)
	}
}

func TestDeleteWorkbasketMarksWhenNotDrained(t *testing.T) {
	f := newFixture()
	f.seedWorkbasket("wb-1", "TEAM-A")
	f.seedTask("t-1", "wb-1", task.StateClaimed, "clerk-1")
	ctx := context.Background()

	marked, err := f.baskets.Delete(ctx, adminP, "wb-1")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !marked {
		t.Fatal("expected workbasket to be marked, not removed")
	}
	w, err := f.store.GetWorkbasket(ctx, "wb-1")
	if err != nil {
		t.Fatalf("workbasket should still exist: %v", err)
	}
	if !w.MarkedForDeletion {
		t.Fatal("expected marked_for_deletion set")
	}
}

func TestDeleteWorkbasketRemovesWhenDrained(t *testing.T) {
	f := newFixture()
	f.seedWorkbasket("wb-1", "TEAM-A")
	f.seedTask("t-1", "wb-1", task.StateCompleted, "clerk-1")
	ctx := context.Background()

	marked, err := f.baskets.Delete(ctx, adminP, "wb-1")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if marked {
		t.Fatal("drained workbasket should be removed outright")
	}
	if _, err := f.store.GetWorkbasket(ctx, "wb-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected workbasket gone, got %v", err)
	}
}

func TestAccessItemLifecycle(t *testing.T) {
	f := newFixture()
	f.seedWorkbasket("wb-1", "TEAM-A")
	ctx := context.Background()

	item, err := f.baskets.CreateAccessItem(ctx, adminP, &workbasket.AccessItem{
		WorkbasketID: "wb-1",
		AccessID:     "Team-B",
		Permissions:  workbasket.NewPermissionSet(workbasket.PermRead, workbasket.PermOpen),
	})
	if err != nil {
		t.Fatalf("CreateAccessItem: %v", err)
	}
	if item.AccessID != "team-b" {
		t.Fatalf("access id not normalized: %q", item.AccessID)
	}

	// A second grant to the same access id, differing only in case, is a
	// duplicate.
	_, err = f.baskets.CreateAccessItem(ctx, adminP, &workbasket.AccessItem{
		WorkbasketID: "wb-1",
		AccessID:     "TEAM-B",
		Permissions:  workbasket.NewPermissionSet(workbasket.PermRead),
	})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	item.Permissions = workbasket.NewPermissionSet(workbasket.PermRead)
	updated, err := f.baskets.UpdateAccessItem(ctx, adminP, item)
	if err != nil {
		t.Fatalf("UpdateAccessItem: %v", err)
	}
	if updated.Permissions.Has(workbasket.PermOpen) {
		t.Fatal("permission set not replaced")
	}

	if err := f.baskets.DeleteAccessItem(ctx, adminP, item.ID); err != nil {
		t.Fatalf("DeleteAccessItem: %v", err)
	}
	items, _ := f.store.ListAccessItems(ctx, "wb-1")
	if len(items) != 0 {
		t.Fatalf("expected no access items, got %d", len(items))
	}
}

func TestAccessItemRequiresAdmin(t *testing.T) {
	f := newFixture()
	f.seedWorkbasket("wb-1", "TEAM-A", workbasket.PermRead)
	_, err := f.baskets.CreateAccessItem(context.Background(), clerkP, &workbasket.AccessItem{
		WorkbasketID: "wb-1", AccessID: "x", Permissions: workbasket.NewPermissionSet(workbasket.PermRead),
	})
	if !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestDistributionTargets(t *testing.T) {
	f := newFixture()
	f.seedWorkbasket("wb-1", "SRC", workbasket.PermRead)
	f.seedWorkbasket("wb-2", "DST-1")
	f.seedWorkbasket("wb-3", "DST-2")
	ctx := context.Background()

	if err := f.baskets.AddDistributionTarget(ctx, adminP, "wb-1", "wb-2"); err != nil {
		t.Fatalf("AddDistributionTarget: %v", err)
	}
	if err := f.baskets.AddDistributionTarget(ctx, adminP, "wb-1", "wb-missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing target, got %v", err)
	}

	targets, err := f.baskets.DistributionTargets(ctx, clerkP, "wb-1")
	if err != nil {
		t.Fatalf("DistributionTargets: %v", err)
	}
	if len(targets) != 1 || targets[0].ID != "wb-2" {
		t.Fatalf("unexpected targets: %v", targets)
	}

	if err := f.baskets.SetDistributionTargets(ctx, adminP, "wb-1", []string{"wb-2", "wb-3"}); err != nil {
		t.Fatalf("SetDistributionTargets: %v", err)
	}
	targets, _ = f.baskets.DistributionTargets(ctx, clerkP, "wb-1")
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(targets))
	}

	if err := f.baskets.RemoveDistributionTarget(ctx, adminP, "wb-1", "wb-2"); err != nil {
		t.Fatalf("RemoveDistributionTarget: %v", err)
	}
	targets, _ = f.baskets.DistributionTargets(ctx, clerkP, "wb-1")
	if len(targets) != 1 || targets[0].ID != "wb-3" {
		t.Fatalf("unexpected targets after removal: %v", targets)
	}
}

func TestWorkbasketListRequiresValidQuery(t *testing.T) {
	f := newFixture()
	q := query.NewWorkbasketQuery().KeyIn()
	if _, err := f.baskets.List(context.Background(), adminP, q, query.Page{Limit: 10}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
