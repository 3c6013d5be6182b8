package models

// Identity holds the verified claims attached to an authenticated
// connection. It is a pure value owned by its connection and never
// changes once set.
type Identity struct {
	Subject  string `json:"sub"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Provider string `json:"provider,omitempty"`
}
