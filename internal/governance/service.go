package governance

import (
	"context"
	"fmt"
	"strings"

	"github.com/openmarket/marketplace-backend/internal/notifications"
	"github.com/openmarket/marketplace-backend/pkg/enums"
	pkgerrors "github.com/openmarket/marketplace-backend/pkg/errors"
	"github.com/openmarket/marketplace-backend/pkg/logger"
	"github.com/google/uuid"
)

// Service exposes store governance operations.
type Service interface {
	CreateStore(ctx context.Context, founderID uuid.UUID, name string) (*StoreDTO, error)
	GetStore(ctx context.Context, storeID uuid.UUID) (*StoreDTO, error)
	ListStores(ctx context.Context) ([]StoreDTO, error)
	CloseStore(ctx context.Context, actorID, storeID uuid.UUID) error
	ReopenStore(ctx context.Context, actorID, storeID uuid.UUID) error

	AppointOwner(ctx context.Context, appointerID, storeID, newOwnerID uuid.UUID) error
	RemoveOwner(ctx context.Context, removerID, storeID, ownerID uuid.UUID) (*RemovalDTO, error)
	AppointManager(ctx context.Context, appointerID, storeID, managerID uuid.UUID, perms []string) error
	RemoveManager(ctx context.Context, removerID, storeID, managerID uuid.UUID) error
	GrantPermission(ctx context.Context, ownerID, storeID, managerID uuid.UUID, perm string) error
	RevokePermission(ctx context.Context, ownerID, storeID, managerID uuid.UUID, perm string) error
	StoreRoles(ctx context.Context, storeID uuid.UUID) (*RolesDTO, error)

	EnsureCanEditListings(ctx context.Context, storeID, actorID uuid.UUID) error
	EnsureCanEditPolicies(ctx context.Context, storeID, actorID uuid.UUID) error
	EnsureStoreOpen(ctx context.Context, storeID uuid.UUID) error
	BidApprovers(ctx context.Context, storeID uuid.UUID) ([]uuid.UUID, error)
}

type service struct {
	registry *Registry
	events   notifications.Publisher
	logg     *logger.Logger
}

// NewService wires governance dependencies.
func NewService(registry *Registry, events notifications.Publisher, logg *logger.Logger) (Service, error) {
	if registry == nil {
		return nil, fmt.Errorf("store registry required")
	}
	if events == nil {
		return nil, fmt.Errorf("event publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{registry: registry, events: events, logg: logg}, nil
}

func (s *service) CreateStore(ctx context.Context, founderID uuid.UUID, name string) (*StoreDTO, error) {
	if strings.TrimSpace(name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store name is required")
	}

	store, err := s.registry.Create(strings.TrimSpace(name), founderID)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithStoreID(ctx, store.ID().String())
	s.logg.Info(s.logg.WithActorID(ctx, founderID.String()), "store founded")

	return NewStoreDTO(store), nil
}

func (s *service) GetStore(_ context.Context, storeID uuid.UUID) (*StoreDTO, error) {
	store, err := s.registry.Get(storeID)
	if err != nil {
		return nil, err
	}
	return NewStoreDTO(store), nil
}

func (s *service) ListStores(_ context.Context) ([]StoreDTO, error) {
	stores := s.registry.List()
	out := make([]StoreDTO, len(stores))
	for i, store := range stores {
		out[i] = *NewStoreDTO(store)
	}
	return out, nil
}

func (s *service) CloseStore(ctx context.Context, actorID, storeID uuid.UUID) error {
	store, err := s.registry.Get(storeID)
	if err != nil {
		return err
	}
	if err := store.Close(actorID); err != nil {
		return err
	}

	s.logg.Info(s.logg.WithStoreID(ctx, storeID.String()), "store closed")
	owners, managers := store.Staff()
	for _, id := range append(owners, managers...) {
		s.events.Publish(ctx, notifications.Event{
			Type:    notifications.EventStoreClosed,
			StoreID: storeID,
			UserID:  id,
			Message: fmt.Sprintf("store %q has been closed", store.Name()),
		})
	}
	return nil
}

func (s *service) ReopenStore(ctx context.Context, actorID, storeID uuid.UUID) error {
	store, err := s.registry.Get(storeID)
	if err != nil {
		return err
	}
	if err := store.Reopen(actorID); err != nil {
		return err
	}

	s.logg.Info(s.logg.WithStoreID(ctx, storeID.String()), "store reopened")
	owners, managers := store.Staff()
	for _, id := range append(owners, managers...) {
		s.events.Publish(ctx, notifications.Event{
			Type:    notifications.EventStoreReopened,
			StoreID: storeID,
			UserID:  id,
			Message: fmt.Sprintf("store %q is trading again", store.Name()),
		})
	}
	return nil
}

func (s *service) AppointOwner(ctx context.Context, appointerID, storeID, newOwnerID uuid.UUID) error {
	store, err := s.registry.Get(storeID)
	if err != nil {
		return err
	}
	if err := store.AddOwner(appointerID, newOwnerID); err != nil {
		return err
	}

	s.logg.Info(s.logg.WithActorID(s.logg.WithStoreID(ctx, storeID.String()), appointerID.String()), "owner appointed")
	s.events.Publish(ctx, notifications.Event{
		Type:    notifications.EventOwnerAppointed,
		StoreID: storeID,
		UserID:  newOwnerID,
		Message: fmt.Sprintf("you are now an owner of %q", store.Name()),
	})
	return nil
}

func (s *service) RemoveOwner(ctx context.Context, removerID, storeID, ownerID uuid.UUID) (*RemovalDTO, error) {
	store, err := s.registry.Get(storeID)
	if err != nil {
		return nil, err
	}

	removedOwners, removedManagers, err := store.RemoveOwner(removerID, ownerID)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithStoreID(ctx, storeID.String())
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"removed_owners":   len(removedOwners),
		"removed_managers": len(removedManagers),
	}), "owner removed with cascade")

	for _, id := range removedOwners {
		s.events.Publish(ctx, notifications.Event{
			Type:    notifications.EventOwnerRemoved,
			StoreID: storeID,
			UserID:  id,
			Message: fmt.Sprintf("your ownership of %q has been revoked", store.Name()),
		})
	}
	for _, id := range removedManagers {
		s.events.Publish(ctx, notifications.Event{
			Type:    notifications.EventManagerRemoved,
			StoreID: storeID,
			UserID:  id,
			Message: fmt.Sprintf("your management of %q has been revoked", store.Name()),
		})
	}

	return &RemovalDTO{RemovedOwners: removedOwners, RemovedManagers: removedManagers}, nil
}

func (s *service) AppointManager(ctx context.Context, appointerID, storeID, managerID uuid.UUID, perms []string) error {
	store, err := s.registry.Get(storeID)
	if err != nil {
		return err
	}

	parsed := make([]enums.Permission, 0, len(perms))
	for _, raw := range perms {
		perm, err := enums.ParsePermission(raw)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid permission")
		}
		parsed = append(parsed, perm)
	}

	if err := store.AddManager(appointerID, managerID, parsed...); err != nil {
		return err
	}

	s.logg.Info(s.logg.WithActorID(s.logg.WithStoreID(ctx, storeID.String()), appointerID.String()), "manager appointed")
	s.events.Publish(ctx, notifications.Event{
		Type:    notifications.EventManagerAppointed,
		StoreID: storeID,
		UserID:  managerID,
		Message: fmt.Sprintf("you are now a manager of %q", store.Name()),
	})
	return nil
}

func (s *service) RemoveManager(ctx context.Context, removerID, storeID, managerID uuid.UUID) error {
	store, err := s.registry.Get(storeID)
	if err != nil {
		return err
	}
	if err := store.RemoveManager(removerID, managerID); err != nil {
		return err
	}

	s.logg.Info(s.logg.WithStoreID(ctx, storeID.String()), "manager removed")
	s.events.Publish(ctx, notifications.Event{
		Type:    notifications.EventManagerRemoved,
		StoreID: storeID,
		UserID:  managerID,
		Message: fmt.Sprintf("your management of %q has been revoked", store.Name()),
	})
	return nil
}

func (s *service) GrantPermission(ctx context.Context, ownerID, storeID, managerID uuid.UUID, perm string) error {
	store, err := s.registry.Get(storeID)
	if err != nil {
		return err
	}
	parsed, err := enums.ParsePermission(perm)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid permission")
	}
	return store.GrantPermission(ownerID, managerID, parsed)
}

func (s *service) RevokePermission(ctx context.Context, ownerID, storeID, managerID uuid.UUID, perm string) error {
	store, err := s.registry.Get(storeID)
	if err != nil {
		return err
	}
	parsed, err := enums.ParsePermission(perm)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid permission")
	}
	return store.RevokePermission(ownerID, managerID, parsed)
}

func (s *service) StoreRoles(_ context.Context, storeID uuid.UUID) (*RolesDTO, error) {
	store, err := s.registry.Get(storeID)
	if err != nil {
		return nil, err
	}

	owners, managers := store.Staff()
	dto := &RolesDTO{
		FounderID: store.FounderID(),
		Owners:    owners,
		Managers:  make([]ManagerDTO, 0, len(managers)),
	}
	for _, id := range managers {
		perms := store.PermissionsOf(id)
		names := make([]string, len(perms))
		for i, p := range perms {
			names[i] = p.String()
		}
		dto.Managers = append(dto.Managers, ManagerDTO{UserID: id, Permissions: names})
	}
	return dto, nil
}

// EnsureCanEditListings gates catalog changes: owners always may, managers
// need the edit_products permission.
func (s *service) EnsureCanEditListings(_ context.Context, storeID, actorID uuid.UUID) error {
	store, err := s.registry.Get(storeID)
	if err != nil {
		return err
	}
	if !store.IsOpen() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "store is closed")
	}
	if store.HasPermission(actorID, enums.PermissionEditProducts) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "listing edits require the edit_products permission")
}

// EnsureCanEditPolicies gates policy changes the same way.
func (s *service) EnsureCanEditPolicies(_ context.Context, storeID, actorID uuid.UUID) error {
	store, err := s.registry.Get(storeID)
	if err != nil {
		return err
	}
	if !store.IsOpen() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "store is closed")
	}
	if store.HasPermission(actorID, enums.PermissionEditPolicies) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "policy edits require the edit_policies permission")
}

// EnsureStoreOpen rejects trade against a closed store.
func (s *service) EnsureStoreOpen(_ context.Context, storeID uuid.UUID) error {
	store, err := s.registry.Get(storeID)
	if err != nil {
		return err
	}
	if !store.IsOpen() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "store is closed")
	}
	return nil
}

// BidApprovers returns the approval quorum for bids against the store.
func (s *service) BidApprovers(_ context.Context, storeID uuid.UUID) ([]uuid.UUID, error) {
	store, err := s.registry.Get(storeID)
	if err != nil {
		return nil, err
	}
	return store.BidApprovers(), nil
}
