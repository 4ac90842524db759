package models

// Recipient is a team member that receives notifications.
type Recipient struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Address string `json:"address" yaml:"address"`
}

// Team is a team the authenticated user belongs to.
type Team struct {
	ID   int64  `json:"teamId"`
	Name string `json:"name"`
}
