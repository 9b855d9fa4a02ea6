package accounts

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"slotwise/database"
	"slotwise/models"
)

// AccountRepository stores connected calendar accounts and their OAuth
// credentials.
type AccountRepository interface {
	// IncludedForOwner returns the owner's accounts flagged to count against
	// availability.
	IncludedForOwner(ctx context.Context, ownerID string) ([]models.CalendarAccount, error)
	GetByID(ctx context.Context, id string) (*models.CalendarAccount, error)
	UpdateToken(ctx context.Context, id string, token models.OAuthToken) error
}

// MongoAccountRepo is the MongoDB-backed implementation.
type MongoAccountRepo struct {
	coll *mongo.Collection
}

func NewMongoAccountRepo() *MongoAccountRepo {
	return &MongoAccountRepo{coll: database.DB().Collection("calendar_accounts")}
}

func (r *MongoAccountRepo) IncludedForOwner(ctx context.Context, ownerID string) ([]models.CalendarAccount, error) {
	filter := bson.M{"ownerId": ownerID, "includeInAvailability": true}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar accounts: %w", err)
	}
	defer cursor.Close(ctx)

	var accounts []models.CalendarAccount
	if err := cursor.All(ctx, &accounts); err != nil {
		return nil, fmt.Errorf("failed to decode calendar accounts: %w", err)
	}
	return accounts, nil
}

func (r *MongoAccountRepo) GetByID(ctx context.Context, id string) (*models.CalendarAccount, error) {
	var account models.CalendarAccount
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&account); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("calendar account %s not found", id)
		}
		return nil, fmt.Errorf("failed to fetch calendar account %s: %w", id, err)
	}
	return &account, nil
}

func (r *MongoAccountRepo) UpdateToken(ctx context.Context, id string, token models.OAuthToken) error {
	update := bson.M{"$set": bson.M{"token": token}}
	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update token for account %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("calendar account %s not found", id)
	}
	return nil
}
