package registry

import "time"

// Token is a short-lived credential for a container registry,
// issued by the Trellis API.
type Token struct {
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	Registry  string    `json:"registry"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (t Token) Equal(o Token) bool {
	return t.Username == o.Username &&
		t.Password == o.Password &&
		t.Registry == o.Registry &&
		t.ExpiresAt.Equal(o.ExpiresAt)
}

// Expired tells whether the token is expired at now.
func (t Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// Repository is a repository in the private registry of the Trellis platform.
type Repository struct {
	Name string `json:"name"`
	URI  string `json:"uri"`
}

func (r Repository) Equal(o Repository) bool {
	return r.Name == o.Name && r.URI == o.URI
}

// RepositorySpec requests creating a new repository.
type RepositorySpec struct {
	Name string `json:"name"`
}
