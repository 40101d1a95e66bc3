package schema

// KankoCreditCodeTable represents the 'kanko.creditcode' table
type KankoCreditCodeTable struct {
	Table       string
	Code        string
	Quantity    string
	Kind        string
	State       string
	UsedAt      string
	LinkedOrder string
	CreatedAt   string
}

// KankoCreditCode is the schema definition for kanko.creditcode
var KankoCreditCode = KankoCreditCodeTable{
	Table:       "kanko.creditcode",
	Code:        "code",
	Quantity:    "quantity",
	Kind:        "kind",
	State:       "state",
	UsedAt:      "usedat",
	LinkedOrder: "linkedorder",
	CreatedAt:   "createdat",
}

func (t KankoCreditCodeTable) Columns() []string {
	return []string{t.Code, t.Quantity, t.Kind, t.State, t.UsedAt, t.LinkedOrder, t.CreatedAt}
}
