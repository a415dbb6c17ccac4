package entity

// Uncategorized is shown for invoices stored without a category
const Uncategorized = "Sin Categoría"

// Invoice categories offered by the upload form
const (
	CategoryFood       = "Alimentación"
	CategoryTransport  = "Transporte"
	CategoryLodging    = "Hospedaje"
	CategoryFuel       = "Combustible"
	CategoryStationery = "Papelería"
	CategoryServices   = "Servicios"
	CategoryOther      = "Otros"
)

// Categories lists the selectable categories in display order
var Categories = []string{
	CategoryFood,
	CategoryTransport,
	CategoryLodging,
	CategoryFuel,
	CategoryStationery,
	CategoryServices,
	CategoryOther,
}

// IsKnownCategory reports whether c is one of Categories
func IsKnownCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// NormalizeCategory maps an empty category to Uncategorized
func NormalizeCategory(c string) string {
	if c == "" {
		return Uncategorized
	}
	return c
}

// Role is the session role of a caller
type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleExternal Role = "Externo"
)

// CanMutate reports whether the role may edit or delete invoices
func (r Role) CanMutate() bool {
	return r == RoleAdmin
}

// IsValid checks the role is one of the defined constants
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleExternal:
		return true
	default:
		return false
	}
}
