// Package notice defines the corporate-action notice model shared across
// the draft pipeline.
package notice

import "time"

// Status tracks where a notice is in its distribution lifecycle.
type Status string

const (
	// StatusNew means ingested, no draft work done yet
	StatusNew Status = "new"

	// StatusAIGenerated means at least one AI draft exists
	StatusAIGenerated Status = "ai-generated"

	// StatusDraftUpdated means an operator has saved a manual draft
	StatusDraftUpdated Status = "draft-updated"

	// StatusDistributed means an approved draft has been sent
	StatusDistributed Status = "distributed"
)

// Notice is an ingested corporate-action notice. The source document is
// immutable; only Status moves as draft work progresses.
type Notice struct {
	ID            string    `json:"notice_id"`
	SecurityCode  string    `json:"security_code"`
	SecurityName  string    `json:"security_name"`
	EventType     string    `json:"event_type"`
	RecordDate    string    `json:"record_date"`
	PaymentDate   string    `json:"payment_date,omitempty"`
	NoticeText    string    `json:"notice_text"`
	SourceChannel string    `json:"source_channel"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Reports       []Report  `json:"reports,omitempty"`
}

// Report is a structured report attached to a notice by the upstream
// document pipeline. Layout extraction already happened there; sections
// arrive as plain structured JSON.
type Report struct {
	ReportType string    `json:"report_type"`
	FileURI    string    `json:"file_uri,omitempty"`
	Sections   []Section `json:"sections"`
}

// Section is one extracted unit of a structured report.
type Section struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
	Page  int    `json:"page,omitempty"`
	Text  string `json:"text"`
}
