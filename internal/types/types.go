package types

import (
	"time"
)

type User struct {
	Id        string    `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// ConnectionRequest is a pending request from one user (primary) to
// another (secondary). Id is a shortid minted on creation.
type ConnectionRequest struct {
	Id            string    `json:"id"`
	PrimaryId     string    `json:"primary_id"`
	SecondaryId   string    `json:"secondary_id"`
	PrimaryName   string    `json:"primary_name"`
	SecondaryName string    `json:"secondary_name"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}

// Connection is an accepted mutual link between two users. CommonId is the
// value handed to clients as the chat room id; callers treat it as opaque.
type Connection struct {
	CommonId      string    `json:"common_id"`
	PrimaryId     string    `json:"primary_id"`
	SecondaryId   string    `json:"secondary_id"`
	PrimaryName   string    `json:"primary_name"`
	SecondaryName string    `json:"secondary_name"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}
