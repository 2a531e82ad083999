package document

import (
	"fmt"
	"time"

	"github.com/xiaomayi-bee/CleftLip/internal/validation"
)

// AuditRecord is a reviewer's decision on a document. Only the latest one is kept.
type AuditRecord struct {
	Approved        bool      `json:"approved"`
	Comments        string    `json:"comments"`
	AuditedAt       time.Time `json:"auditedAt"`
	Auditor         string    `json:"auditor" validate:"required"`
	AuditorID       int       `json:"auditorId"`
	AuditorUsername string    `json:"auditorUsername"`
}

// Auditor identifies the reviewer making a decision.
type Auditor struct {
	ID       int
	Name     string
	Username string
}

// Status is the review state of a document.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// SetAudit replaces any previous audit record.
func (d *Document) SetAudit(approved bool, comments string, who Auditor, now time.Time) error {
	rec := &AuditRecord{
		Approved:        approved,
		Comments:        comments,
		AuditedAt:       now.UTC(),
		Auditor:         who.Name,
		AuditorID:       who.ID,
		AuditorUsername: who.Username,
	}
	if err := validation.Struct(rec); err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	d.Audit = rec
	return nil
}

// Status reports the review state.
func (d *Document) Status() Status {
	switch {
	case d.Audit == nil:
		return StatusPending
	case d.Audit.Approved:
		return StatusApproved
	default:
		return StatusRejected
	}
}

// ReviewStats summarizes the review state of a set of documents.
type ReviewStats struct {
	Total    int `json:"total"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Pending  int `json:"pending"`
	// ApprovalRate is approved/total as a percentage with two decimals, e.g. "66.67".
	ApprovalRate string `json:"approval_rate"`
}

// Summarize counts documents by status.
func Summarize(docs []*Document) ReviewStats {
	s := ReviewStats{Total: len(docs)}
	for _, d := range docs {
		switch d.Status() {
		case StatusApproved:
			s.Approved++
		case StatusRejected:
			s.Rejected++
		default:
			s.Pending++
		}
	}
	rate := 0.0
	if s.Total > 0 {
		rate = float64(s.Approved) / float64(s.Total) * 100
	}
	s.ApprovalRate = fmt.Sprintf("%.2f", rate)
	return s
}
