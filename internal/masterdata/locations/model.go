package locations

import "time"

// Location is a physical place stock can sit: a warehouse, a shelf, a store.
type Location struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Address     string `json:"address"`
	Capacity    *int64 `json:"capacity,omitempty"`
	// CurrentUtilization is the sum of stock level quantities held at the
	// location. Derived on read, never stored.
	CurrentUtilization int64     `json:"currentUtilization"`
	IsActive           bool      `json:"isActive"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

const (
	TypeWarehouse = "warehouse"
	TypeStore     = "store"
	TypeOutlet    = "outlet"
	TypeFactory   = "factory"
	TypeOffice    = "office"
)

func validType(t string) bool {
	switch t {
	case TypeWarehouse, TypeStore, TypeOutlet, TypeFactory, TypeOffice:
		return true
	}
	return false
}
