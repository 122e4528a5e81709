package governance

import (
	"sync"
	"testing"

	"github.com/openmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/openmarket/marketplace-backend/pkg/errors"
	"github.com/google/uuid"
)

func newTestStore(t *testing.T, founderID uuid.UUID) *Store {
	t.Helper()
	store, err := NewStore(uuid.New(), "Corner Shop", founderID)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestFounderIsOwner(t *testing.T) {
	t.Parallel()

	founder := uuid.New()
	store := newTestStore(t, founder)

	if !store.IsOwner(founder) {
		t.Fatal("founder must be an owner")
	}
	if !store.HasPermission(founder, enums.PermissionEditPolicies) {
		t.Fatal("owners hold every permission implicitly")
	}
	if !store.IsOpen() {
		t.Fatal("new store must be open")
	}
}

func TestAddOwnerRequiresOwner(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, uuid.New())

	err := store.AddOwner(uuid.New(), uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestAddOwnerRejectsExistingRole(t *testing.T) {
	t.Parallel()

	founder := uuid.New()
	store := newTestStore(t, founder)
	owner := uuid.New()
	manager := uuid.New()

	if err := store.AddOwner(founder, owner); err != nil {
		t.Fatalf("add owner: %v", err)
	}
	if err := store.AddManager(founder, manager); err != nil {
		t.Fatalf("add manager: %v", err)
	}

	if err := store.AddOwner(founder, owner); !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict for existing owner, got %v", err)
	}
	if err := store.AddOwner(founder, manager); !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict for existing manager, got %v", err)
	}
}

func TestRemoveOwnerCascades(t *testing.T) {
	t.Parallel()

	founder := uuid.New()
	store := newTestStore(t, founder)

	// founder -> a -> b -> c (owners); b -> m (manager)
	a, b, c, m := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	if err := store.AddOwner(founder, a); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := store.AddOwner(a, b); err != nil {
		t.Fatalf("add b: %v", err)
	}
	if err := store.AddOwner(b, c); err != nil {
		t.Fatalf("add c: %v", err)
	}
	if err := store.AddManager(b, m); err != nil {
		t.Fatalf("add m: %v", err)
	}

	removedOwners, removedManagers, err := store.RemoveOwner(founder, a)
	if err != nil {
		t.Fatalf("remove owner: %v", err)
	}

	if len(removedOwners) != 3 {
		t.Fatalf("removed owners = %v, want a, b, c", removedOwners)
	}
	if len(removedManagers) != 1 || removedManagers[0] != m {
		t.Fatalf("removed managers = %v, want [m]", removedManagers)
	}
	for _, id := range []uuid.UUID{a, b, c} {
		if store.IsOwner(id) {
			t.Fatalf("owner %s survived cascade", id)
		}
	}
	if store.IsManager(m) {
		t.Fatal("manager survived cascade")
	}
	if !store.IsOwner(founder) {
		t.Fatal("founder must survive")
	}
}

func TestRemoveOwnerOnlyByAppointer(t *testing.T) {
	t.Parallel()

	founder := uuid.New()
	store := newTestStore(t, founder)
	a, b := uuid.New(), uuid.New()
	if err := store.AddOwner(founder, a); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := store.AddOwner(founder, b); err != nil {
		t.Fatalf("add b: %v", err)
	}

	// a did not appoint b.
	_, _, err := store.RemoveOwner(a, b)
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestFounderCannotBeRemoved(t *testing.T) {
	t.Parallel()

	founder := uuid.New()
	store := newTestStore(t, founder)

	_, _, err := store.RemoveOwner(founder, founder)
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestManagerPermissions(t *testing.T) {
	t.Parallel()

	founder := uuid.New()
	store := newTestStore(t, founder)
	manager := uuid.New()

	if err := store.AddManager(founder, manager, enums.PermissionEditProducts); err != nil {
		t.Fatalf("add manager: %v", err)
	}

	if !store.HasPermission(manager, enums.PermissionViewOnly) {
		t.Fatal("managers always hold view_only")
	}
	if !store.HasPermission(manager, enums.PermissionEditProducts) {
		t.Fatal("starting grant missing")
	}
	if store.HasPermission(manager, enums.PermissionEditPolicies) {
		t.Fatal("ungranted permission must be absent")
	}

	if err := store.GrantPermission(founder, manager, enums.PermissionBidApproval); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if !store.HasPermission(manager, enums.PermissionBidApproval) {
		t.Fatal("grant did not take effect")
	}

	if err := store.RevokePermission(founder, manager, enums.PermissionBidApproval); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if store.HasPermission(manager, enums.PermissionBidApproval) {
		t.Fatal("revoke did not take effect")
	}

	if err := store.RevokePermission(founder, manager, enums.PermissionViewOnly); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error revoking view_only, got %v", err)
	}
}

func TestPermissionChangesOnlyByAppointer(t *testing.T) {
	t.Parallel()

	founder := uuid.New()
	store := newTestStore(t, founder)
	otherOwner := uuid.New()
	manager := uuid.New()

	if err := store.AddOwner(founder, otherOwner); err != nil {
		t.Fatalf("add owner: %v", err)
	}
	if err := store.AddManager(founder, manager); err != nil {
		t.Fatalf("add manager: %v", err)
	}

	err := store.GrantPermission(otherOwner, manager, enums.PermissionEditProducts)
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := store.RemoveManager(otherOwner, manager); !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden on remove, got %v", err)
	}
}

func TestBidApprovers(t *testing.T) {
	t.Parallel()

	founder := uuid.New()
	store := newTestStore(t, founder)
	owner := uuid.New()
	approverManager := uuid.New()
	plainManager := uuid.New()

	if err := store.AddOwner(founder, owner); err != nil {
		t.Fatalf("add owner: %v", err)
	}
	if err := store.AddManager(founder, approverManager, enums.PermissionBidApproval); err != nil {
		t.Fatalf("add approver manager: %v", err)
	}
	if err := store.AddManager(founder, plainManager); err != nil {
		t.Fatalf("add plain manager: %v", err)
	}

	approvers := store.BidApprovers()
	if len(approvers) != 3 {
		t.Fatalf("approvers = %v, want founder, owner, approver manager", approvers)
	}
	for _, id := range approvers {
		if id == plainManager {
			t.Fatal("manager without bid_approval must not be an approver")
		}
	}
}

func TestCloseAndReopen(t *testing.T) {
	t.Parallel()

	founder := uuid.New()
	store := newTestStore(t, founder)
	owner := uuid.New()
	if err := store.AddOwner(founder, owner); err != nil {
		t.Fatalf("add owner: %v", err)
	}

	if err := store.Close(owner); !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("non-founder close: expected forbidden, got %v", err)
	}
	if err := store.Close(founder); err != nil {
		t.Fatalf("close: %v", err)
	}
	if store.IsOpen() {
		t.Fatal("store must be closed")
	}
	if err := store.Close(founder); !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("double close: expected state conflict, got %v", err)
	}
	if err := store.Reopen(founder); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !store.IsOpen() {
		t.Fatal("store must be open again")
	}
}

func TestClosedStoreRejectsMutations(t *testing.T) {
	t.Parallel()

	founder := uuid.New()
	store := newTestStore(t, founder)
	owner := uuid.New()
	manager := uuid.New()
	if err := store.AddOwner(founder, owner); err != nil {
		t.Fatalf("add owner: %v", err)
	}
	if err := store.AddManager(owner, manager); err != nil {
		t.Fatalf("add manager: %v", err)
	}
	if err := store.Close(founder); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := store.AddOwner(founder, uuid.New()); !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("add owner on closed store: expected state conflict, got %v", err)
	}
	if err := store.AddManager(founder, uuid.New()); !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("add manager on closed store: expected state conflict, got %v", err)
	}
	if _, _, err := store.RemoveOwner(founder, owner); !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("remove owner on closed store: expected state conflict, got %v", err)
	}
	if err := store.RemoveManager(owner, manager); !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("remove manager on closed store: expected state conflict, got %v", err)
	}
	if err := store.GrantPermission(owner, manager, enums.PermissionBidApproval); !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("grant on closed store: expected state conflict, got %v", err)
	}
	if err := store.RevokePermission(owner, manager, enums.PermissionBidApproval); !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("revoke on closed store: expected state conflict, got %v", err)
	}

	// Reopening restores the whole surface.
	if err := store.Reopen(founder); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := store.AddOwner(founder, uuid.New()); err != nil {
		t.Fatalf("add owner after reopen: %v", err)
	}
}

func TestConcurrentAppointmentsSingleWinner(t *testing.T) {
	t.Parallel()

	founder := uuid.New()
	store := newTestStore(t, founder)
	candidate := uuid.New()

	const workers = 16
	var wg sync.WaitGroup
	wg.Add(workers)
	successes := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if err := store.AddOwner(founder, candidate); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	count := 0
	for range successes {
		count++
	}
	if count != 1 {
		t.Fatalf("concurrent appointments: %d succeeded, want exactly 1", count)
	}
}
