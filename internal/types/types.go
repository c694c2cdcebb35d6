package types

import "time"

const (
	// MasterSheet is the reserved name of the aggregate source
	MasterSheet = "Master Sheet"

	// TotalSentinel marks pre-computed subtotal rows in every sheet
	TotalSentinel = "Total"
)

// ViewKind describes which schema a listing was built from
type ViewKind string

const (
	ViewAggregate ViewKind = "aggregate"
	ViewPeriod    ViewKind = "period"
	ViewSearch    ViewKind = "search"
)

// RawRow is one positional row as delivered by the upstream sheet.
// Cells are JSON scalars: string, float64, bool or nil.
type RawRow []any

// SheetDescriptor identifies one upstream data source
type SheetDescriptor struct {
	Name        string `json:"name"`
	PeriodLabel string `json:"date"`
}

// IsAggregate reports whether the sheet is the cumulative master view
func (s SheetDescriptor) IsAggregate() bool {
	return s.Name == MasterSheet
}

// ActivationRecord is one employee's figures for one sheet
type ActivationRecord struct {
	EmployeeID  string `json:"empId"`
	AgentName   string `json:"agentName"`
	Silver      int    `json:"silver"`
	Gold        int    `json:"gold"`
	Platinum    int    `json:"platinum"`
	Standard    int    `json:"standard"`
	Total       int    `json:"total"`    // period sheets only
	Target      int    `json:"target"`   // master sheet only
	Achieved    int    `json:"achieved"` // master sheet only
	Remaining   int    `json:"remaining"`
	PeriodLabel string `json:"date,omitempty"` // set when reshaped into a multi-period listing
}

// IsTotal reports whether the record is a subtotal sentinel row
func (r ActivationRecord) IsTotal() bool {
	return r.EmployeeID == TotalSentinel || r.AgentName == TotalSentinel
}

// TotalsSummary holds the summed counters of a listing
type TotalsSummary struct {
	Silver    int `json:"silver"`
	Gold      int `json:"gold"`
	Platinum  int `json:"platinum"`
	Standard  int `json:"standard"`
	Total     int `json:"total"`
	Target    int `json:"target"`
	Achieved  int `json:"achieved"`
	Remaining int `json:"remaining"` // always Target - Achieved
}

// AlertSeverity represents the severity of a row alert
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// AgentAlert represents an alert condition for one row
type AgentAlert struct {
	Rule     string        `json:"rule"`
	Severity AlertSeverity `json:"severity"`
	Message  string        `json:"message"`
}

// RowView is a record decorated for display
type RowView struct {
	ActivationRecord
	AchievementPct *float64     `json:"achievementPct,omitempty"`
	OnTarget       bool         `json:"onTarget"`
	Alerts         []AgentAlert `json:"alerts,omitempty"`
}

// Dashboard is the payload of one load cycle
type Dashboard struct {
	Sheet        string        `json:"sheet"`
	View         ViewKind      `json:"view"`
	Query        string        `json:"query,omitempty"`
	Rows         []RowView     `json:"rows"`
	Totals       TotalsSummary `json:"totals"`       // over the selected sheet
	ResultTotals TotalsSummary `json:"resultTotals"` // over Rows
	Periods      []string      `json:"periods,omitempty"`
	Generation   uint64        `json:"generation"`
	GeneratedAt  time.Time     `json:"generatedAt"`
}

// DashboardUpdate is pushed to websocket subscribers after a refresh
type DashboardUpdate struct {
	Type      string     `json:"type"` // "dashboard_update"
	Key       string     `json:"key"`
	Dashboard *Dashboard `json:"dashboard"`
}

// SubscriptionKey identifies a (sheet, query) pair
func SubscriptionKey(sheet, query string) string {
	return sheet + "\x00" + query
}
