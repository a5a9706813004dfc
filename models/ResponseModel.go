package models

// ErrorResponse is the generic error payload returned by all handlers.
type ErrorResponse struct {
	Error   string `json:"error" example:"Quotation not found"`
	Details string `json:"details,omitempty" example:""`
}

// MessageResponse is the generic success payload for status-only operations.
type MessageResponse struct {
	Message string `json:"message" example:"Quotation moved to negotiation"`
}

// ValidateSessionResponse is returned by the session validation endpoint.
type ValidateSessionResponse struct {
	Message   string `json:"message" example:"Session validated"`
	SessionID string `json:"session_id" example:""`
	HostName  string `json:"host_name" example:"user@example.com"`
	RoleName  string `json:"role_name" example:"Approver"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	Token        string `json:"token" example:""`
	RefreshToken string `json:"refresh_token" example:""`
	User         User   `json:"user"`
}

// FilterOptionsResponse carries the values used to populate the comparison
// filters. Regions and categories never include values reachable only
// through cancelled quotations.
type FilterOptionsResponse struct {
	Period     string   `json:"period,omitempty" example:"2024-06"`
	Region     string   `json:"region,omitempty" example:"North"`
	Regions    []string `json:"regions,omitempty" example:"North,South"`
	Categories []string `json:"categories,omitempty" example:"Oils & Fats,Dairy"`
}

// ImportQuotationResponse reports the outcome of a quotation file import.
type ImportQuotationResponse struct {
	BatchID       string `json:"batch_id" example:"7f6f3c1e-9d0a-4f36-8f4c-1a2b3c4d5e6f"`
	QuotationID   int    `json:"quotation_id" example:"1"`
	Reference     string `json:"reference" example:"Q-AB12345"`
	ImportedItems int    `json:"imported_items" example:"42"`
	SkippedRows   int    `json:"skipped_rows" example:"1"`
}
