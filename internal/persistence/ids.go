package persistence

import "go.mongodb.org/mongo-driver/bson/primitive"

// NewObjectID returns a 24 character hex identifier in the ObjectID format the
// booking frontend already renders as _id.
func NewObjectID() string {
	return primitive.NewObjectID().Hex()
}
