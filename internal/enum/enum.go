package enum

// ── Group A: Wire values (CHECK constrained in DB) ──

// Consumption modes as stored in orders.place.
const (
	PlaceDineIn  = "sur place"
	PlaceTakeout = "à emporter"
)

// IsValidPlace reports whether s is an accepted orders.place value.
func IsValidPlace(s string) bool {
	return s == PlaceDineIn || s == PlaceTakeout
}

// ── Group B: Catalog labels (configured in the content store, no DB constraint) ──

const (
	CategoryMenus  = "menus"
	CategoryDrinks = "boissons"
)

const (
	MenuBestOf     = "menu best of"
	MenuMaxiBestOf = "menu maxi best of"
)

const (
	SideFries    = "frites"
	SidePotatoes = "potatoes"
)

// ── Group C: Staff feed events ──

const (
	EventOrderCreated   = "order.created"
	EventOrderProcessed = "order.processed"
)
