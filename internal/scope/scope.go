// Package scope models the attribution target of an audited action as
// a closed two-variant union: an action is either agency-scoped or
// sub-account-scoped. Callers construct exactly one variant, so the
// "neither id supplied" state is unrepresentable at the type level and
// a nil Scope is the only way to express it — which resolvers reject.
package scope

import "github.com/google/uuid"

// Scope is either an AgencyScope or a SubAccountScope. The unexported
// method keeps the union closed to this package.
type Scope interface {
	isScope()
}

// AgencyScope attributes an action directly to an agency.
type AgencyScope struct {
	AgencyID uuid.UUID
}

func (AgencyScope) isScope() {}

// SubAccountScope attributes an action to a sub-account; the owning
// agency is derived from the sub-account row at resolution time.
type SubAccountScope struct {
	SubAccountID uuid.UUID
}

func (SubAccountScope) isScope() {}

// Agency is shorthand for constructing an agency-scoped target.
func Agency(id uuid.UUID) Scope { return AgencyScope{AgencyID: id} }

// SubAccount is shorthand for constructing a sub-account-scoped target.
func SubAccount(id uuid.UUID) Scope { return SubAccountScope{SubAccountID: id} }
