package queue

import "go.mongodb.org/mongo-driver/bson/primitive"

// Routing keys on the auth.events exchange.
const (
	KeyUserRegistered = "user.registered"
	KeyUserLoggedIn   = "user.loggedin"
	KeyUserLinked     = "user.linked"
)

type UserRegistered struct {
	UserID primitive.ObjectID `json:"user_id"`
	Email  string             `json:"email"`
	Name   string             `json:"name"`
}

type UserLoggedIn struct {
	UserID primitive.ObjectID `json:"user_id"`
	Email  string             `json:"email"`
}

// UserLinked fires when an OAuth identity is merged into an existing account.
type UserLinked struct {
	UserID   primitive.ObjectID `json:"user_id"`
	Email    string             `json:"email"`
	Provider string             `json:"provider"`
}
