package types

// Credentials are what the portal's login form needs. They are read once at
// startup and never modified.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"-"`
	// PlantOID scopes requests to a single monitored installation.
	PlantOID string `json:"plantOID"`
}
