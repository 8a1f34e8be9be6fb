package database

import "go.mongodb.org/mongo-driver/mongo"

// Table is implemented by every persisted document model (user,
// conversation, message, notification). GetTableName is the single
// place a model's collection name lives; stores resolve collections
// through it instead of repeating string literals.
type Table interface {
	GetTableName() string
	Collection() *mongo.Collection
}
