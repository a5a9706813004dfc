package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"backend/models"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"golang.org/x/net/html"
)

var emailTemplateTypes = []string{"quotation_approved", "quotation_cancelled", "welcome_user"}

func isValidTemplateType(templateType string) bool {
	for _, t := range emailTemplateTypes {
		if templateType == t {
			return true
		}
	}
	return false
}

// sanitizeHTML strips disallowed tags and attributes from template bodies
// coming out of the frontend editor. Content of stripped tags is kept.
func sanitizeHTML(input string) string {
	doc, err := html.Parse(strings.NewReader(input))
	if err != nil {
		return input
	}

	allowedTags := map[string]bool{
		"p": true, "br": true, "strong": true, "b": true, "em": true, "i": true,
		"u": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
		"ul": true, "ol": true, "li": true, "div": true, "span": true, "a": true,
		"table": true, "thead": true, "tbody": true, "tr": true, "th": true, "td": true,
		"blockquote": true, "code": true, "pre": true, "hr": true,
	}

	allowedAttributes := map[string]map[string]bool{
		"a":     {"href": true, "target": true, "title": true},
		"table": {"border": true, "cellpadding": true, "cellspacing": true, "width": true},
		"td":    {"colspan": true, "rowspan": true, "width": true, "height": true},
		"th":    {"colspan": true, "rowspan": true, "width": true, "height": true},
	}

	var newDoc html.Node
	newDoc.Type = html.DocumentNode

	var processNode func(*html.Node, *html.Node)
	processNode = func(src *html.Node, dst *html.Node) {
		for child := src.FirstChild; child != nil; child = child.NextSibling {
			switch child.Type {
			case html.TextNode:
				dst.AppendChild(&html.Node{Type: html.TextNode, Data: child.Data})
			case html.ElementNode:
				if allowedTags[child.Data] {
					newElement := &html.Node{Type: html.ElementNode, Data: child.Data}
					for _, attr := range child.Attr {
						if allowedAttributes[child.Data] != nil && allowedAttributes[child.Data][attr.Key] {
							newElement.Attr = append(newElement.Attr, attr)
						}
					}
					dst.AppendChild(newElement)
					processNode(child, newElement)
				} else {
					processNode(child, dst)
				}
			}
		}
	}

	processNode(doc, &newDoc)

	var buf strings.Builder
	if err := html.Render(&buf, &newDoc); err != nil {
		return input
	}
	result := buf.String()

	// html.Render wraps the fragment in <html><head></head><body>.
	if strings.HasPrefix(result, "<html>") {
		start := strings.Index(result, "<body>")
		end := strings.Index(result, "</body>")
		if start != -1 && end != -1 {
			result = result[start+6 : end]
		}
	}

	return strings.TrimSpace(result)
}

// CreateEmailTemplate godoc
// @Summary      Create an email template
// @Tags         email-templates
// @Accept       json
// @Param        template  body  models.EmailTemplateRequest  true  "Template"
// @Success      201  {object}  models.EmailTemplate
// @Failure      400  {object}  models.ErrorResponse
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/email-templates [post]
func CreateEmailTemplate(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, userName, ok := RequireManager(db, c)
		if !ok {
			return
		}

		var request models.EmailTemplateRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}
		if !isValidTemplateType(request.TemplateType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template type", "valid_types": emailTemplateTypes})
			return
		}

		sanitizedBody := sanitizeHTML(request.Body)

		if GlobalEmailService != nil {
			if err := GlobalEmailService.ValidateTemplate(request.Subject, sanitizedBody); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template", "details": err.Error()})
				return
			}
		}

		tx, err := db.Begin()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
			return
		}
		defer tx.Rollback()

		// Only one default per type.
		if request.IsDefault {
			if _, err := tx.Exec(`UPDATE email_templates SET is_default = false WHERE template_type = $1`, request.TemplateType); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update existing defaults"})
				return
			}
		}

		var templateID int
		err = tx.QueryRow(`
			INSERT INTO email_templates (template_type, name, subject, body, cc, bcc, is_default, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
			RETURNING id`,
			request.TemplateType, request.Name, request.Subject, sanitizedBody,
			pq.Array(request.CC), pq.Array(request.BCC), request.IsDefault,
		).Scan(&templateID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create template", "details": err.Error()})
			return
		}

		if err := tx.Commit(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
			return
		}

		template, err := models.GetTemplateByID(db, templateID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Template created but failed to retrieve"})
			return
		}

		c.JSON(http.StatusCreated, template)

		entry := models.ActivityLog{
			EventContext: "EmailTemplate",
			EventName:    "Create",
			Description:  fmt.Sprintf("Email template '%s' created", request.Name),
			UserName:     userName,
			HostName:     session.HostName,
			IPAddress:    session.IPAddress,
			CreatedAt:    time.Now(),
		}
		if logErr := SaveActivityLog(db, entry); logErr != nil {
			fmt.Printf("Failed to log activity: %v\n", logErr)
		}
	}
}

// GetEmailTemplates godoc
// @Summary      List email templates
// @Tags         email-templates
// @Param        type  query  string  false  "Template type"
// @Success      200  {array}   models.EmailTemplate
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/email-templates [get]
func GetEmailTemplates(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _, ok := RequireManager(db, c)
		if !ok {
			return
		}

		query := `
			SELECT id, template_type, name, subject, body, cc, bcc, is_default, created_at, updated_at
			FROM email_templates`
		args := []interface{}{}
		if templateType := c.Query("type"); templateType != "" {
			query += ` WHERE template_type = $1`
			args = append(args, templateType)
		}
		query += ` ORDER BY template_type, is_default DESC, name`

		rows, err := db.Query(query, args...)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch templates", "details": err.Error()})
			return
		}
		defer rows.Close()

		templates := []models.EmailTemplate{}
		for rows.Next() {
			var t models.EmailTemplate
			if err := rows.Scan(&t.ID, &t.TemplateType, &t.Name, &t.Subject, &t.Body,
				pq.Array(&t.CC), pq.Array(&t.BCC), &t.IsDefault, &t.CreatedAt, &t.UpdatedAt); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan template"})
				return
			}
			templates = append(templates, t)
		}

		c.JSON(http.StatusOK, templates)
	}
}

// GetEmailTemplateByID godoc
// @Summary      Get one email template
// @Tags         email-templates
// @Param        id  path  int  true  "Template ID"
// @Success      200  {object}  models.EmailTemplate
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/email-templates/{id} [get]
func GetEmailTemplateByID(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _, ok := RequireManager(db, c)
		if !ok {
			return
		}

		templateID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template ID"})
			return
		}

		template, err := models.GetTemplateByID(db, templateID)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch template", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, template)
	}
}

// UpdateEmailTemplate godoc
// @Summary      Update an email template
// @Tags         email-templates
// @Accept       json
// @Param        id        path  int                          true  "Template ID"
// @Param        template  body  models.EmailTemplateRequest  true  "Template"
// @Success      200  {object}  models.EmailTemplate
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/email-templates/{id} [put]
func UpdateEmailTemplate(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, userName, ok := RequireManager(db, c)
		if !ok {
			return
		}

		templateID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template ID"})
			return
		}

		var request models.EmailTemplateRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}
		if !isValidTemplateType(request.TemplateType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template type", "valid_types": emailTemplateTypes})
			return
		}

		sanitizedBody := sanitizeHTML(request.Body)
		if GlobalEmailService != nil {
			if err := GlobalEmailService.ValidateTemplate(request.Subject, sanitizedBody); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template", "details": err.Error()})
				return
			}
		}

		tx, err := db.Begin()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
			return
		}
		defer tx.Rollback()

		if request.IsDefault {
			if _, err := tx.Exec(`UPDATE email_templates SET is_default = false WHERE template_type = $1 AND id != $2`,
				request.TemplateType, templateID); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update existing defaults"})
				return
			}
		}

		result, err := tx.Exec(`
			UPDATE email_templates
			SET template_type = $1, name = $2, subject = $3, body = $4,
			    cc = $5, bcc = $6, is_default = $7, updated_at = NOW()
			WHERE id = $8`,
			request.TemplateType, request.Name, request.Subject, sanitizedBody,
			pq.Array(request.CC), pq.Array(request.BCC), request.IsDefault, templateID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update template", "details": err.Error()})
			return
		}
		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}

		if err := tx.Commit(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
			return
		}

		template, err := models.GetTemplateByID(db, templateID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Template updated but failed to retrieve"})
			return
		}

		c.JSON(http.StatusOK, template)

		entry := models.ActivityLog{
			EventContext: "EmailTemplate",
			EventName:    "Update",
			Description:  fmt.Sprintf("Email template '%s' updated", request.Name),
			UserName:     userName,
			HostName:     session.HostName,
			IPAddress:    session.IPAddress,
			CreatedAt:    time.Now(),
		}
		if logErr := SaveActivityLog(db, entry); logErr != nil {
			fmt.Printf("Failed to log activity: %v\n", logErr)
		}
	}
}

// DeleteEmailTemplate godoc
// @Summary      Delete an email template
// @Description  The default template of a type cannot be deleted while it is the default.
// @Tags         email-templates
// @Param        id  path  int  true  "Template ID"
// @Success      200  {object}  models.MessageResponse
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /api/email-templates/{id} [delete]
func DeleteEmailTemplate(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, userName, ok := RequireManager(db, c)
		if !ok {
			return
		}

		templateID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template ID"})
			return
		}

		var isDefault bool
		var name string
		err = db.QueryRow(`SELECT is_default, name FROM email_templates WHERE id = $1`, templateID).Scan(&isDefault, &name)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch template", "details": err.Error()})
			return
		}
		if isDefault {
			c.JSON(http.StatusConflict, gin.H{"error": "Cannot delete the default template; set another default first"})
			return
		}

		if _, err := db.Exec(`DELETE FROM email_templates WHERE id = $1`, templateID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete template", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Template deleted"})

		entry := models.ActivityLog{
			EventContext: "EmailTemplate",
			EventName:    "Delete",
			Description:  fmt.Sprintf("Email template '%s' deleted", name),
			UserName:     userName,
			HostName:     session.HostName,
			IPAddress:    session.IPAddress,
			CreatedAt:    time.Now(),
		}
		if logErr := SaveActivityLog(db, entry); logErr != nil {
			fmt.Printf("Failed to log activity: %v\n", logErr)
		}
	}
}

// GetEmailTemplateVariables godoc
// @Summary      List the variables available to templates
// @Tags         email-templates
// @Success      200  {array}  models.EmailTemplateVariable
// @Router       /api/email-templates/variables [get]
func GetEmailTemplateVariables(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _, ok := RequireManager(db, c)
		if !ok {
			return
		}
		if GlobalEmailService == nil {
			c.JSON(http.StatusOK, []models.EmailTemplateVariable{})
			return
		}
		c.JSON(http.StatusOK, GlobalEmailService.GetAvailableVariables())
	}
}
