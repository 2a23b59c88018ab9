package adapter

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// CollectionProvider defines how a store obtains its collection handle.
type CollectionProvider interface {
	// Collection returns the notes collection, connecting first if needed.
	Collection(ctx context.Context) (*mongo.Collection, error)
}
