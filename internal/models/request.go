package models

import (
	"time"
)

// RequestStatus is the lifecycle state of a connection request. Only pending is
// ever produced here; acceptance is out of scope.
type RequestStatus string

const RequestStatusPending RequestStatus = "pending"

// ConnectionRequest is a one-directional intent record stored under the owning
// user and keyed by the counterpart's id. A mutual request is a pair of these,
// written independently.
type ConnectionRequest struct {
	ID        string        `json:"id" bson:"_id"`
	OwnerID   string        `json:"owner_id" bson:"owner_id"`
	OtherID   string        `json:"other_id" bson:"other_id"`
	Status    RequestStatus `json:"status" bson:"status"`
	Since     *time.Time    `json:"since" bson:"since"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at"`
}

// ConnectResponse acknowledges a sent request.
type ConnectResponse struct {
	RecipientID string `json:"recipient_id"`
	Status      string `json:"status"`
}
