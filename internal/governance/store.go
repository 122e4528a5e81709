package governance

import (
	"sync"

	"github.com/openmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/openmarket/marketplace-backend/pkg/errors"
	"github.com/google/uuid"
)

// Store is the governance aggregate for one marketplace store: who founded
// it, who owns it, who manages it, and which permissions each manager holds.
// Every appointment is recorded against its appointer so removals can cascade
// down the appointment tree. All mutations serialize on the store's lock.
type Store struct {
	mu sync.Mutex

	id        uuid.UUID
	name      string
	founderID uuid.UUID
	open      bool

	owners      map[uuid.UUID]uuid.UUID // ownerID -> appointer
	managers    map[uuid.UUID]uuid.UUID // managerID -> appointing owner
	appointees  map[uuid.UUID][]uuid.UUID
	permissions map[uuid.UUID]map[enums.Permission]bool
}

// NewStore creates an open store with the founder as its first owner.
func NewStore(id uuid.UUID, name string, founderID uuid.UUID) (*Store, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if founderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "founder id required")
	}
	s := &Store{
		id:          id,
		name:        name,
		founderID:   founderID,
		open:        true,
		owners:      map[uuid.UUID]uuid.UUID{founderID: founderID},
		managers:    map[uuid.UUID]uuid.UUID{},
		appointees:  map[uuid.UUID][]uuid.UUID{},
		permissions: map[uuid.UUID]map[enums.Permission]bool{},
	}
	return s, nil
}

// ID returns the store identifier.
func (s *Store) ID() uuid.UUID { return s.id }

// Name returns the store display name.
func (s *Store) Name() string { return s.name }

// FounderID returns the founding owner.
func (s *Store) FounderID() uuid.UUID { return s.founderID }

// IsOpen reports whether the store is currently trading.
func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Close suspends trading. Only the founder may close the store.
func (s *Store) Close(actorID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if actorID != s.founderID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the founder may close the store")
	}
	if !s.open {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "store is already closed")
	}
	s.open = false
	return nil
}

// Reopen resumes trading. Only the founder may reopen the store.
func (s *Store) Reopen(actorID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if actorID != s.founderID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the founder may reopen the store")
	}
	if s.open {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "store is already open")
	}
	s.open = true
	return nil
}

// ensureOpenLocked rejects mutations against a closed store. Callers must
// hold s.mu.
func (s *Store) ensureOpenLocked() error {
	if !s.open {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "store is closed")
	}
	return nil
}

// AddOwner appoints a new owner. The appointer must already be an owner and
// the candidate must hold no role in the store.
func (s *Store) AddOwner(appointerID, newOwnerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpenLocked(); err != nil {
		return err
	}
	if _, ok := s.owners[appointerID]; !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only an owner may appoint owners")
	}
	if _, ok := s.owners[newOwnerID]; ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "user is already an owner")
	}
	if _, ok := s.managers[newOwnerID]; ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "user is already a manager")
	}

	s.owners[newOwnerID] = appointerID
	s.appointees[appointerID] = append(s.appointees[appointerID], newOwnerID)
	return nil
}

// AddManager appoints a manager with the given starting permissions. The
// appointer must be an owner and the candidate must hold no role.
func (s *Store) AddManager(appointerID, managerID uuid.UUID, perms ...enums.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpenLocked(); err != nil {
		return err
	}
	if _, ok := s.owners[appointerID]; !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only an owner may appoint managers")
	}
	if _, ok := s.owners[managerID]; ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "user is already an owner")
	}
	if _, ok := s.managers[managerID]; ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "user is already a manager")
	}

	s.managers[managerID] = appointerID
	s.appointees[appointerID] = append(s.appointees[appointerID], managerID)

	grants := map[enums.Permission]bool{enums.PermissionViewOnly: true}
	for _, p := range perms {
		if !p.IsValid() {
			delete(s.managers, managerID)
			s.removeAppointee(appointerID, managerID)
			return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown permission %q", p)
		}
		grants[p] = true
	}
	s.permissions[managerID] = grants
	return nil
}

// RemoveOwner removes an owner and cascades over everyone that owner
// appointed, directly or transitively. Only the owner's original appointer
// may remove them, and the founder can never be removed. Returns the removed
// owners and managers, the removed owner included.
func (s *Store) RemoveOwner(removerID, ownerID uuid.UUID) (removedOwners, removedManagers []uuid.UUID, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpenLocked(); err != nil {
		return nil, nil, err
	}
	appointer, ok := s.owners[ownerID]
	if !ok {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "user is not an owner")
	}
	if ownerID == s.founderID {
		return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "the founder cannot be removed")
	}
	if appointer != removerID {
		return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the appointing owner may remove this owner")
	}

	// Collect the whole appointment subtree first, then apply, so a partial
	// walk can never leave the graph half-removed.
	queue := []uuid.UUID{ownerID}
	seen := map[uuid.UUID]bool{ownerID: true}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if _, ok := s.owners[current]; ok {
			removedOwners = append(removedOwners, current)
		} else {
			removedManagers = append(removedManagers, current)
		}

		for _, child := range s.appointees[current] {
			if !seen[child] {
				seen[child] = true
				queue = append(queue, child)
			}
		}
	}

	for _, id := range removedOwners {
		delete(s.owners, id)
		delete(s.appointees, id)
	}
	for _, id := range removedManagers {
		delete(s.managers, id)
		delete(s.permissions, id)
	}
	s.removeAppointee(removerID, ownerID)

	return removedOwners, removedManagers, nil
}

// RemoveManager removes a manager. Only the appointing owner may remove them.
func (s *Store) RemoveManager(removerID, managerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpenLocked(); err != nil {
		return err
	}
	appointer, ok := s.managers[managerID]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user is not a manager")
	}
	if appointer != removerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the appointing owner may remove this manager")
	}

	delete(s.managers, managerID)
	delete(s.permissions, managerID)
	s.removeAppointee(removerID, managerID)
	return nil
}

// GrantPermission adds a permission to a manager. Only the manager's
// appointer may change their grants.
func (s *Store) GrantPermission(ownerID, managerID uuid.UUID, perm enums.Permission) error {
	if !perm.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown permission %q", perm)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpenLocked(); err != nil {
		return err
	}
	appointer, ok := s.managers[managerID]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user is not a manager")
	}
	if appointer != ownerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the appointing owner may change permissions")
	}
	if s.permissions[managerID] == nil {
		s.permissions[managerID] = map[enums.Permission]bool{}
	}
	s.permissions[managerID][perm] = true
	return nil
}

// RevokePermission removes a permission from a manager. The view_only grant
// cannot be revoked.
func (s *Store) RevokePermission(ownerID, managerID uuid.UUID, perm enums.Permission) error {
	if !perm.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown permission %q", perm)
	}
	if perm == enums.PermissionViewOnly {
		return pkgerrors.New(pkgerrors.CodeValidation, "view_only cannot be revoked")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpenLocked(); err != nil {
		return err
	}
	appointer, ok := s.managers[managerID]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user is not a manager")
	}
	if appointer != ownerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the appointing owner may change permissions")
	}
	delete(s.permissions[managerID], perm)
	return nil
}

// IsOwner reports whether the user is an owner of the store.
func (s *Store) IsOwner(userID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.owners[userID]
	return ok
}

// IsManager reports whether the user is a manager of the store.
func (s *Store) IsManager(userID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.managers[userID]
	return ok
}

// HasPermission reports whether the user holds the permission. Owners hold
// every permission implicitly.
func (s *Store) HasPermission(userID uuid.UUID, perm enums.Permission) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.owners[userID]; ok {
		return true
	}
	return s.permissions[userID][perm]
}

// BidApprovers returns the users whose approval a bid needs: every owner
// plus every manager holding the bid_approval permission.
func (s *Store) BidApprovers() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	approvers := make([]uuid.UUID, 0, len(s.owners))
	for id := range s.owners {
		approvers = append(approvers, id)
	}
	for id := range s.managers {
		if s.permissions[id][enums.PermissionBidApproval] {
			approvers = append(approvers, id)
		}
	}
	return approvers
}

// Staff returns the current owners and managers.
func (s *Store) Staff() (owners, managers []uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.owners {
		owners = append(owners, id)
	}
	for id := range s.managers {
		managers = append(managers, id)
	}
	return owners, managers
}

// PermissionsOf returns a manager's grants.
func (s *Store) PermissionsOf(managerID uuid.UUID) []enums.Permission {
	s.mu.Lock()
	defer s.mu.Unlock()
	grants := s.permissions[managerID]
	perms := make([]enums.Permission, 0, len(grants))
	for p, ok := range grants {
		if ok {
			perms = append(perms, p)
		}
	}
	return perms
}

func (s *Store) removeAppointee(appointerID, appointeeID uuid.UUID) {
	children := s.appointees[appointerID]
	for i, id := range children {
		if id == appointeeID {
			s.appointees[appointerID] = append(children[:i], children[i+1:]...)
			return
		}
	}
}
