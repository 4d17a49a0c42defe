package storage

import "time"

// Credential is one stored API key
type Credential struct {
	Provider   string    `json:"provider" db:"provider"`
	Credential string    `json:"-" db:"credential"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// SelectedModel is the user's model choice for one provider
type SelectedModel struct {
	Provider  string    `json:"provider" db:"provider"`
	Model     string    `json:"model" db:"model"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// RoundRecord is one dispatched prompt
type RoundRecord struct {
	ID        string          `json:"id" db:"id"`
	Epoch     int64           `json:"epoch" db:"epoch"`
	Prompt    string          `json:"prompt" db:"prompt"`
	Providers JSONStringArray `json:"providers" db:"providers"`
	StartedAt time.Time       `json:"started_at" db:"started_at"`
}

// RoundResult is one provider's outcome within a round
type RoundResult struct {
	ID         string    `json:"id" db:"id"`
	RoundID    string    `json:"round_id" db:"round_id"`
	Provider   string    `json:"provider" db:"provider"`
	Model      string    `json:"model" db:"model"`
	Content    string    `json:"content" db:"content"`
	Error      string    `json:"error" db:"error"`
	DurationMs int64     `json:"duration_ms" db:"duration_ms"`
	Stale      bool      `json:"stale" db:"stale"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
