package domain

type ContextKey string

const PrincipalContextKey ContextKey = "principal"

// Principal is the caller identity decoded from the access token.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
