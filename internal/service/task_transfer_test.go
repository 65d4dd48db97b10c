package service

import (
	"context"
	"errors"
	"testing"

	"github.com/taskdesk/taskdesk/internal/domain"
	"github.com/taskdesk/taskdesk/internal/domain/task"
	"github.com/taskdesk/taskdesk/internal/domain/workbasket"
	"github.com/taskdesk/taskdesk/internal/port/messagequeue"
)

func TestTransfer(t *testing.T) {
	f := newFixture()
	f.seedWorkbasket("wb-src", "SRC", workbasket.PermRead, workbasket.PermTransfer)
	f.seedWorkbasket("wb-dst", "DST", workbasket.PermAppend)
	seeded := f.seedTask("t-1", "wb-src", task.StateReady, "")
	seeded.Read = true
	ctx := context.Background()

	got, err := f.tasks.Transfer(ctx, clerkP, "t-1", "wb-dst", true)
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if got.WorkbasketID != "wb-dst" {
		t.Fatalf("expected wb-dst, got %s", got.WorkbasketID)
	}
	if got.Read {
		t.Fatal("transfer must clear the read flag")
	}
	if !got.Transferred {
		t.Fatal("expected transferred flag set")
	}

	subjects := f.queue.subjects()
	if len(subjects) != 1 || subjects[0] != messagequeue.SubjectTaskTransferred {
		t.Fatalf("expected transferred event, got %v", subjects)
	}
}

func TestTransferRequiresTransferOnSource(t *testing.T) {
	f := newFixture()
	f.seedWorkbasket("wb-src", "SRC", workbasket.PermRead) // no TRANSFER
	f.seedWorkbasket("wb-dst", "DST", workbasket.PermAppend)
	f.seedTask("t-1", "wb-src", task.StateReady, "")

	if _, err := f.tasks.Transfer(context.Background(), clerkP, "t-1", "wb-dst", false); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestTransferRequiresAppendOnDestination(t *testing.T) {
	f := newFixture()
	f.seedWorkbasket("wb-src", "SRC", workbasket.PermRead, workbasket.PermTransfer)
	f.seedWorkbasket("wb-dst", "DST", workbasket.PermRead) // no APPEND
	f.seedTask("t-1", "wb-src", task.StateReady, "")

	if _, err := f.tasks.Transfer(context.Background(), clerkP, "t-1", "wb-dst", false); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestTransferToMarkedWorkbasket(t *testing.T) {
	f := newFixture()
	f.seedWorkbasket("wb-src", "SRC", workbasket.PermRead, workbasket.PermTransfer)
	dst := f.seedWorkbasket("wb-dst", "DST", workbasket.PermAppend)
	dst.MarkedForDeletion = true
	f.seedTask("t-1", "wb-src", task.StateReady, "")

	if _, err := f.tasks.Transfer(context.Background(), clerkP, "t-1", "wb-dst", false); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestTransferEndStateRejected(t *testing.T) {
	f := newFixture()
	f.seedWorkbasket("wb-src", "SRC", workbasket.PermRead, workbasket.PermTransfer)
	f.seedWorkbasket("wb-dst", "DST", workbasket.PermAppend)
	f.seedTask("t-1", "wb-src", task.StateCompleted, "")

	if _, err := f.tasks.Transfer(context.Background(), clerkP, "t-1", "wb-dst", false); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestTransferSameDestinationNoOp(t *testing.T) {
	f := newFixture()
	f.seedWorkbasket("wb-src", "SRC", workbasket.PermRead, workbasket.PermTransfer, workbasket.PermAppend)
	f.seedTask("t-1", "wb-src", task.StateReady, "")

	got, err := f.tasks.Transfer(context.Background(), clerkP, "t-1", "wb-src", true)
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if got.Transferred {
		t.Fatal("same-destination transfer must not set the flag")
	}
	if len(f.queue.subjects()) != 0 {
		t.Fatal("same-destination transfer must not publish an event")
	}
}

func TestTransferByKey(t *testing.T) {
	f := newFixture()
	f.seedWorkbasket("wb-src", "SRC", workbasket.PermRead, workbasket.PermTransfer)
	f.seedWorkbasket("wb-dst", "DST", workbasket.PermAppend)
	f.seedTask("t-1", "wb-src", task.StateReady, "")

	got, err := f.tasks.TransferByKey(context.Background(), clerkP, "t-1", "dst", "domain_a", false)
	if err != nil {
		t.Fatalf("TransferByKey: %v", err)
	}
	if got.WorkbasketID != "wb-dst" {
		t.Fatalf("expected wb-dst, got %s", got.WorkbasketID)
	}
}

func TestTransferBulk(t *testing.T) {
	f := newFixture()
	f.seedWorkbasket("wb-src", "SRC", workbasket.PermRead, workbasket.PermTransfer)
	f.seedWorkbasket("wb-dst", "DST", workbasket.PermAppend)
	f.seedTask("t-1", "wb-src", task.StateReady, "")
	f.seedTask("t-2", "wb-src", task.StateCancelled, "") // end state fails
	ctx := context.Background()

	result, err := f.tasks.TransferBulk(ctx, clerkP, "wb-dst", true, []string{"t-1", "t-2"})
	if err != nil {
		t.Fatalf("TransferBulk: %v", err)
	}
	if err := result.ErrorFor("t-1"); err != nil {
		t.Fatalf("t-1 should have moved: %v", err)
	}
	if err := result.ErrorFor("t-2"); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for t-2, got %v", err)
	}
}
