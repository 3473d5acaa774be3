package auth

// SessionData represents the authenticated person of a request
type SessionData struct {
	UserID     int    `json:"user_id"`
	Email      string `json:"email"`
	IsAdmin    bool   `json:"is_admin"`
	AuthMethod string `json:"auth_method"` // "bearer", "cookie"
}
