// Package domain holds the core entities and the derived-state
// calculators that run over them. Entities mirror the backend tables;
// derived fields are computed, never persisted.
package domain

import "time"

// Profile is a user profile row (table: profiles).
type Profile struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	DOB       string     `json:"dob,omitempty"`
	Address   string     `json:"address,omitempty"`
	AvatarURL string     `json:"avatar_url,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// ProfileUpdate carries a partial profile mutation. Nil fields are untouched.
type ProfileUpdate struct {
	Name      *string `json:"name,omitempty"`
	DOB       *string `json:"dob,omitempty"`
	Address   *string `json:"address,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// Account is a bank account row (table: accounts).
// Balance is mutated by goal payments.
type Account struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	BankName      string     `json:"bank_name"`
	Balance       float64    `json:"balance"`
	CreditScore   *int       `json:"credit_score,omitempty"`
	AccountNumber string     `json:"account_number,omitempty"`
	SortCode      string     `json:"sort_code,omitempty"`
	IBAN          string     `json:"iban,omitempty"`
	AccountType   string     `json:"account_type,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// AccountInput is the payload for creating an account.
type AccountInput struct {
	BankName      string  `json:"bank_name"`
	Balance       float64 `json:"balance"`
	AccountNumber string  `json:"account_number,omitempty"`
	SortCode      string  `json:"sort_code,omitempty"`
	IBAN          string  `json:"iban,omitempty"`
	AccountType   string  `json:"account_type,omitempty"`
}

// UserInterest is an onboarding interest row (table: user_interests).
type UserInterest struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Interest string `json:"interest"`
}

// UserChampion is a followed champion row (table: user_champions).
type UserChampion struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	ChampionName string `json:"champion_name"`
}
