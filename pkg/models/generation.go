package models

// Role is a chat message role understood by the text-generation service.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// CompletionRequest is one call to the text-generation service.
type CompletionRequest struct {
	SystemRole string `json:"system_role"`
	UserRole   string `json:"user_role"`
	Model      string `json:"model,omitempty"`
}
