package schema

// KankoSeriesTable represents the 'kanko.series' table
type KankoSeriesTable struct {
	Table      string
	ID         string
	Name       string
	ClientID   string
	RepoRef    string
	PublicURL  string
	Status     string
	Config     string
	Note       string
	IssueCount string
	CreatedAt  string
	UpdatedAt  string

	// ActiveNameKey is the unique partial index on Name among active rows.
	ActiveNameKey string
}

// KankoSeries is the schema definition for kanko.series
var KankoSeries = KankoSeriesTable{
	Table:         "kanko.series",
	ID:            "id",
	Name:          "name",
	ClientID:      "clientid",
	RepoRef:       "reporef",
	PublicURL:     "publicurl",
	Status:        "status",
	Config:        "config",
	Note:          "note",
	IssueCount:    "issuecount",
	CreatedAt:     "createdat",
	UpdatedAt:     "updatedat",
	ActiveNameKey: "series_active_name_key",
}

func (t KankoSeriesTable) Columns() []string {
	return []string{t.ID, t.Name, t.ClientID, t.RepoRef, t.PublicURL, t.Status, t.Config, t.Note, t.IssueCount, t.CreatedAt}
}
