package database

import "time"

type User struct {
	Id           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type ConnectionRequest struct {
	Id            string
	PrimaryId     string
	SecondaryId   string
	PrimaryName   string
	SecondaryName string
	CreatedAt     time.Time
}

type Connection struct {
	CommonId      string
	PrimaryId     string
	SecondaryId   string
	PrimaryName   string
	SecondaryName string
	CreatedAt     time.Time
}

type CreateUserParams struct {
	Id           string
	Username     string
	PasswordHash string
}

type CreateConnectionRequestParams struct {
	Id            string
	PrimaryId     string
	SecondaryId   string
	PrimaryName   string
	SecondaryName string
}

type CreateConnectionParams struct {
	CommonId      string
	PrimaryId     string
	SecondaryId   string
	PrimaryName   string
	SecondaryName string
}
