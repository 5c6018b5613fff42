package model

// Column layout of the primary subscription table (A:G).
const (
	ColOptions    = 0
	ColOrderCode  = 1
	ColEmail      = 2
	ColExpiryDate = 3
	ColRemaining  = 4
	ColTTKH       = 5
	ColTeam       = 6

	// TeamColumn is the sheet column letter of ColTeam, used for single cell writes.
	TeamColumn = "G"
)

// SubscriptionRecord is one customer row of the primary table.
type SubscriptionRecord struct {
	Email      string `json:"email"`
	OrderCode  string `json:"order_code"`
	Options    string `json:"options"`
	ExpiryDate string `json:"expiry_date"`
	Remaining  string `json:"remaining"`
	TTKH       string `json:"ttkh"`
	TeamID     string `json:"team_id"`

	// Row is the 1-based sheet row the record was read from.
	Row int `json:"row"`
}

// SubscriptionFromRow maps a primary table row. index is the 0-based position of the row
// in the fetched range, which starts at row 1 of the sheet.
func SubscriptionFromRow(row []string, index int) *SubscriptionRecord {
	return &SubscriptionRecord{
		Options:    Cell(row, ColOptions),
		OrderCode:  Cell(row, ColOrderCode),
		Email:      Cell(row, ColEmail),
		ExpiryDate: Cell(row, ColExpiryDate),
		Remaining:  Cell(row, ColRemaining),
		TTKH:       Cell(row, ColTTKH),
		TeamID:     Cell(row, ColTeam),
		Row:        index + 1,
	}
}

// TeamCell is the A1 reference of this record's team cell.
func (r *SubscriptionRecord) TeamCell() string {
	return TeamColumnCell(r.Row)
}
