package schema

// KankoIssueTable represents the 'kanko.issue' table
type KankoIssueTable struct {
	Table           string
	ID              string
	SeriesID        string
	Serial          string
	Volume          string
	Number          string
	Status          string
	IssueDate       string
	Filename        string
	Title           string
	SourceRef       string
	CommitRef       string
	MergeRequestURL string
	CreatedAt       string

	// SourceRefKey is the unique index on (SeriesID, SourceRef).
	SourceRefKey string
	// SerialKey is the unique index on (SeriesID, Serial).
	SerialKey string
}

// KankoIssue is the schema definition for kanko.issue
var KankoIssue = KankoIssueTable{
	Table:           "kanko.issue",
	ID:              "id",
	SeriesID:        "seriesid",
	Serial:          "serial",
	Volume:          "volume",
	Number:          "number",
	Status:          "status",
	IssueDate:       "issuedate",
	Filename:        "filename",
	Title:           "title",
	SourceRef:       "sourceref",
	CommitRef:       "commitref",
	MergeRequestURL: "mergerequesturl",
	CreatedAt:       "createdat",
	SourceRefKey:    "issue_series_sourceref_key",
	SerialKey:       "issue_series_serial_key",
}

func (t KankoIssueTable) Columns() []string {
	return []string{t.IssueDate, t.Serial, t.Volume, t.Number, t.Status, t.Filename, t.SourceRef, t.Title, t.CommitRef, t.MergeRequestURL}
}
