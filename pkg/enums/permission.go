package enums

import "fmt"

// Permission is a store-scoped capability granted to a manager by the owner
// who appointed them. Owners implicitly hold every permission.
type Permission string

const (
	PermissionViewOnly     Permission = "view_only"
	PermissionEditProducts Permission = "edit_products"
	PermissionEditPolicies Permission = "edit_policies"
	PermissionBidApproval  Permission = "bid_approval"
)

var validPermissions = []Permission{
	PermissionViewOnly,
	PermissionEditProducts,
	PermissionEditPolicies,
	PermissionBidApproval,
}

// String implements fmt.Stringer.
func (p Permission) String() string {
	return string(p)
}

// IsValid reports whether the value is a known Permission.
func (p Permission) IsValid() bool {
	for _, candidate := range validPermissions {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePermission converts raw input into a Permission.
func ParsePermission(value string) (Permission, error) {
	for _, candidate := range validPermissions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid permission %q", value)
}
