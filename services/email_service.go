package services

import (
	"database/sql"
	"fmt"
	"log"
	"net/smtp"
	"os"
	"regexp"
	"strings"

	"backend/models"

	"golang.org/x/net/html"
)

// EmailService sends templated notification emails.
type EmailService struct {
	db *sql.DB
}

func NewEmailService(db *sql.DB) *EmailService {
	return &EmailService{db: db}
}

// convertHTMLToText converts a template body to plain text for sending.
func convertHTMLToText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return htmlContent
	}

	var text strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			text.WriteString(n.Data)
		case html.ElementNode:
			switch n.Data {
			case "p", "div", "br", "h1", "h2", "h3", "h4", "h5", "h6":
				text.WriteString("\n")
			case "li":
				text.WriteString("- ")
			case "table", "tr":
				text.WriteString("\n")
			case "td", "th":
				text.WriteString(" | ")
			}
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			extractText(child)
		}
	}

	extractText(doc)

	result := text.String()
	result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	result = strings.TrimSpace(result)

	return result
}

// SendTemplatedEmail renders and sends an email for a template type. When
// customTemplateID is non-nil that template is used, otherwise the default
// template for the type.
func (es *EmailService) SendTemplatedEmail(templateType string, emailData models.EmailData, customTemplateID *int) error {
	var template *models.EmailTemplate
	var err error

	if customTemplateID != nil {
		template, err = models.GetTemplateByID(es.db, *customTemplateID)
	} else {
		template, err = models.GetDefaultTemplate(es.db, templateType)
	}
	if err != nil {
		return fmt.Errorf("failed to get email template: %w", err)
	}

	variables := map[string]string{
		"user_name":      emailData.UserName,
		"email":          emailData.Email,
		"supplier_name":  emailData.SupplierName,
		"reference":      emailData.Reference,
		"period":         emailData.Period,
		"region":         emailData.Region,
		"approved_value": emailData.ApprovedValue,
		"approved_items": emailData.ApprovedItems,
		"support_email":  emailData.SupportEmail,
		"login_url":      emailData.LoginURL,
	}

	subject := es.processTemplate(template.Subject, variables)
	body := es.processTemplate(template.Body, variables)

	return es.sendEmail(emailData.Email, subject, body, template.CC, template.BCC)
}

// SendQuotationApprovedEmail notifies a recipient that a quotation was
// approved, using the default quotation_approved template.
func (es *EmailService) SendQuotationApprovedEmail(emailData models.EmailData) error {
	return es.SendTemplatedEmail("quotation_approved", emailData, nil)
}

// SendQuotationCancelledEmail notifies a recipient that a quotation was
// cancelled.
func (es *EmailService) SendQuotationCancelledEmail(emailData models.EmailData) error {
	return es.SendTemplatedEmail("quotation_cancelled", emailData, nil)
}

// processTemplate substitutes {{variable}} placeholders.
func (es *EmailService) processTemplate(template string, variables map[string]string) string {
	result := template
	for key, value := range variables {
		placeholder := "{{" + key + "}}"
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return result
}

// sendEmail delivers a plain-text rendering of the body over SMTP.
func (es *EmailService) sendEmail(to, subject, body string, cc, bcc []string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpPort := os.Getenv("SMTP_PORT")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPassword := os.Getenv("SMTP_PASSWORD")
	if smtpHost == "" {
		smtpHost = "smtp.gmail.com"
	}
	if smtpPort == "" {
		smtpPort = "587"
	}
	if smtpUser == "" || smtpPassword == "" {
		log.Printf("SMTP credentials not configured, skipping email to %s", to)
		return nil
	}

	plainTextBody := convertHTMLToText(body)

	headers := []string{
		fmt.Sprintf("From: %s", smtpUser),
		fmt.Sprintf("To: %s", to),
	}
	if len(cc) > 0 {
		headers = append(headers, fmt.Sprintf("Cc: %s", strings.Join(cc, ", ")))
	}
	headers = append(headers,
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
	)

	message := strings.Join(headers, "\r\n") + "\r\n\r\n" + plainTextBody

	recipients := []string{to}
	recipients = append(recipients, cc...)
	recipients = append(recipients, bcc...)

	auth := smtp.PlainAuth("", smtpUser, smtpPassword, smtpHost)
	err := smtp.SendMail(smtpHost+":"+smtpPort, auth, smtpUser, recipients, []byte(message))
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	log.Printf("Email sent to %s: %s", to, subject)
	return nil
}

// ValidateTemplate checks brace balance and that every placeholder is a
// known variable.
func (es *EmailService) ValidateTemplate(subject, body string) error {
	content := subject + " " + body

	openCount := strings.Count(content, "{{")
	closeCount := strings.Count(content, "}}")
	if openCount != closeCount {
		return fmt.Errorf("unbalanced template braces: %d opening, %d closing", openCount, closeCount)
	}

	valid := make(map[string]bool)
	for _, v := range es.GetAvailableVariables() {
		valid[v.Key] = true
	}

	re := regexp.MustCompile(`\{\{([a-zA-Z0-9_]+)\}\}`)
	for _, match := range re.FindAllStringSubmatch(content, -1) {
		if !valid[match[1]] {
			return fmt.Errorf("unknown template variable: %s", match[1])
		}
	}

	return nil
}

// GetAvailableVariables lists the variables templates may reference.
func (es *EmailService) GetAvailableVariables() []models.EmailTemplateVariable {
	return []models.EmailTemplateVariable{
		{Key: "user_name", Description: "Full name of the recipient"},
		{Key: "email", Description: "Recipient email address"},
		{Key: "supplier_name", Description: "Supplier the quotation belongs to"},
		{Key: "reference", Description: "Quotation reference"},
		{Key: "period", Description: "Procurement period (YYYY-MM)"},
		{Key: "region", Description: "Region the quotation covers"},
		{Key: "approved_value", Description: "Total approved value of the quotation"},
		{Key: "approved_items", Description: "Number of approved price lines"},
		{Key: "support_email", Description: "Support contact address"},
		{Key: "login_url", Description: "Application login URL"},
	}
}
