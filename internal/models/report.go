package models

import "time"

// ReportFormat selects the transcript output format.
type ReportFormat string

const (
	ReportFormatPDF ReportFormat = "pdf"
	ReportFormatCSV ReportFormat = "csv"
)

// ReportStatus tracks the lifecycle of an async transcript job.
type ReportStatus string

const (
	ReportStatusPending    ReportStatus = "PENDING"
	ReportStatusProcessing ReportStatus = "PROCESSING"
	ReportStatusCompleted  ReportStatus = "COMPLETED"
	ReportStatusFailed     ReportStatus = "FAILED"
)

// ReportJob is a queued transcript generation request for a student.
type ReportJob struct {
	ID          string       `db:"id" json:"id"`
	StudentID   string       `db:"student_id" json:"student_id"`
	Format      ReportFormat `db:"format" json:"format"`
	Status      ReportStatus `db:"status" json:"status"`
	FilePath    string       `db:"file_path" json:"-"`
	Error       *string      `db:"error" json:"error,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	CompletedAt *time.Time   `db:"completed_at" json:"completed_at,omitempty"`
}

// ReportDownload carries the signed URL issued for a completed report.
type ReportDownload struct {
	ReportID  string    `json:"report_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
