package parser

// HeaderRows is the number of leading rows every sheet spends on headers
const HeaderRows = 2

// absent marks a column a schema does not read
const absent = -1

// Schema maps record fields to column offsets for one view type
type Schema struct {
	EmployeeID int
	AgentName  int
	Silver     int
	Gold       int
	Platinum   int
	Standard   int
	Total      int
	Target     int
	Achieved   int
	Remaining  int
}

// AggregateSchema is the column layout of the master sheet
var AggregateSchema = Schema{
	EmployeeID: 0,
	AgentName:  1,
	Silver:     2,
	Gold:       3,
	Platinum:   4,
	Standard:   5,
	Total:      absent,
	Target:     6,
	Achieved:   7,
	Remaining:  8,
}

// PeriodSchema is the column layout of a daily sheet
var PeriodSchema = Schema{
	EmployeeID: 0,
	AgentName:  1,
	Silver:     2,
	Gold:       3,
	Platinum:   4,
	Standard:   5,
	Total:      6,
	Target:     absent,
	Achieved:   absent,
	Remaining:  absent,
}

// SchemaFor returns the layout for the aggregate or a period view
func SchemaFor(aggregate bool) Schema {
	if aggregate {
		return AggregateSchema
	}
	return PeriodSchema
}
