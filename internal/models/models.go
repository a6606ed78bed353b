package models

import (
	"time"
)

// Account is stored as a Redis hash under AccountKey(ID). The redis tags
// name the hash fields; the json tags shape the HTTP API.
type Account struct {
	ID        int64  `json:"id" redis:"id"`
	Username  string `json:"username" redis:"username,maxlen=32"`
	Email     string `json:"email,omitempty" redis:"email,maxlen=254"`
	VIP       int    `json:"vip" redis:"vip"`
	Active    bool   `json:"active" redis:"active"`
	CreatedAt int64  `json:"created_at" redis:"created_at"`
}

// Created returns CreatedAt as a time.
func (a *Account) Created() time.Time {
	return time.Unix(a.CreatedAt, 0).UTC()
}

type CreateAccountRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// UpdateAccountRequest carries the fields to change. Nil fields are left
// untouched.
type UpdateAccountRequest struct {
	Email  *string `json:"email,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

type PromoteRequest struct {
	Levels int64 `json:"levels"`
}

type AccountList struct {
	Accounts []Account `json:"accounts"`
	Total    int64     `json:"total"`
}

// AccountEvent is one entry of an account's activity log, newest first.
type AccountEvent struct {
	Event string `json:"event"`
	At    int64  `json:"at"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type StatusResponse struct {
	Status   string `json:"status"`
	DB       int    `json:"db"`
	Accounts int64  `json:"accounts"`
	VIP      int64  `json:"vip"`
}
