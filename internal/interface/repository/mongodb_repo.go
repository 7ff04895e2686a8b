package repository

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// newObjectID generates a hex document id, shared by the mongo repos
func newObjectID() string {
	return primitive.NewObjectID().Hex()
}
