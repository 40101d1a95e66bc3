package schema

// KankoScheduleTable represents the 'kanko.schedule' table
type KankoScheduleTable struct {
	Table               string
	SeriesID            string
	CadenceMonths       string
	VolumeStartYear     string
	VolumeDurationYears string
	CurrentSerial       string
	UpdatedAt           string
}

// KankoSchedule is the schema definition for kanko.schedule
var KankoSchedule = KankoScheduleTable{
	Table:               "kanko.schedule",
	SeriesID:            "seriesid",
	CadenceMonths:       "cadencemonths",
	VolumeStartYear:     "volumestartyear",
	VolumeDurationYears: "volumedurationyears",
	CurrentSerial:       "currentserial",
	UpdatedAt:           "updatedat",
}

func (t KankoScheduleTable) Columns() []string {
	return []string{t.SeriesID, t.CadenceMonths, t.VolumeStartYear, t.VolumeDurationYears, t.CurrentSerial}
}
