package governance

import "github.com/google/uuid"

// StoreDTO is the public view of a store.
type StoreDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	FounderID uuid.UUID `json:"founder_id"`
	Open      bool      `json:"open"`
}

// NewStoreDTO builds a DTO from the aggregate.
func NewStoreDTO(store *Store) *StoreDTO {
	return &StoreDTO{
		ID:        store.ID(),
		Name:      store.Name(),
		FounderID: store.FounderID(),
		Open:      store.IsOpen(),
	}
}

// RemovalDTO reports the cascade outcome of an owner removal.
type RemovalDTO struct {
	RemovedOwners   []uuid.UUID `json:"removed_owners"`
	RemovedManagers []uuid.UUID `json:"removed_managers"`
}

// ManagerDTO pairs a manager with their permission grants.
type ManagerDTO struct {
	UserID      uuid.UUID `json:"user_id"`
	Permissions []string  `json:"permissions"`
}

// RolesDTO lists a store's staff.
type RolesDTO struct {
	FounderID uuid.UUID    `json:"founder_id"`
	Owners    []uuid.UUID  `json:"owners"`
	Managers  []ManagerDTO `json:"managers"`
}
