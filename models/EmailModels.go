package models

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// EmailTemplate is a stored notification template. Body is HTML; it is
// converted to plain text at send time.
type EmailTemplate struct {
	ID           int       `json:"id" example:"1"`
	TemplateType string    `json:"template_type" example:"quotation_approved"`
	Name         string    `json:"name" example:"Quotation approved"`
	Subject      string    `json:"subject" example:"Quotation {{reference}} approved"`
	Body         string    `json:"body" example:""`
	CC           []string  `json:"cc,omitempty"`
	BCC          []string  `json:"bcc,omitempty"`
	IsDefault    bool      `json:"is_default" example:"true"`
	CreatedAt    time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt    time.Time `json:"updated_at" example:"2024-01-15T10:30:00Z"`
}

// EmailData carries the variables substituted into a template.
type EmailData struct {
	Email         string
	UserName      string
	SupplierName  string
	Reference     string
	Period        string
	Region        string
	ApprovedValue string
	ApprovedItems string
	SupportEmail  string
	LoginURL      string
}

// EmailTemplateRequest is the create/update payload for templates.
type EmailTemplateRequest struct {
	TemplateType string   `json:"template_type" binding:"required" example:"quotation_approved"`
	Name         string   `json:"name" binding:"required" example:"Quotation approved"`
	Subject      string   `json:"subject" binding:"required" example:"Quotation {{reference}} approved"`
	Body         string   `json:"body" binding:"required" example:"<p>Dear {{supplier_name}},</p>"`
	CC           []string `json:"cc,omitempty"`
	BCC          []string `json:"bcc,omitempty"`
	IsDefault    bool     `json:"is_default" example:"false"`
}

// EmailTemplateVariable documents one substitutable template variable.
type EmailTemplateVariable struct {
	Key         string `json:"key" example:"reference"`
	Description string `json:"description" example:"Quotation reference"`
}

// GetTemplateByID fetches one email template.
func GetTemplateByID(db *sql.DB, id int) (*EmailTemplate, error) {
	var t EmailTemplate
	err := db.QueryRow(`
		SELECT id, template_type, name, subject, body, cc, bcc, is_default, created_at, updated_at
		FROM email_templates WHERE id = $1`, id).
		Scan(&t.ID, &t.TemplateType, &t.Name, &t.Subject, &t.Body,
			pq.Array(&t.CC), pq.Array(&t.BCC), &t.IsDefault, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetDefaultTemplate fetches the default template for a type.
func GetDefaultTemplate(db *sql.DB, templateType string) (*EmailTemplate, error) {
	var t EmailTemplate
	err := db.QueryRow(`
		SELECT id, template_type, name, subject, body, cc, bcc, is_default, created_at, updated_at
		FROM email_templates WHERE template_type = $1 AND is_default = true`, templateType).
		Scan(&t.ID, &t.TemplateType, &t.Name, &t.Subject, &t.Body,
			pq.Array(&t.CC), pq.Array(&t.BCC), &t.IsDefault, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
