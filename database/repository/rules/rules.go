package rules

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"slotwise/database"
	"slotwise/models"
)

// RuleRepository provides read access to recurring availability rules. The
// availability core treats the rule set as read-only input; rule CRUD belongs
// to the owner-facing surface.
type RuleRepository interface {
	ActiveRulesFor(ctx context.Context, ownerID string) ([]models.AvailabilityRule, error)
}

// MongoRuleRepo is the MongoDB-backed implementation.
type MongoRuleRepo struct {
	coll *mongo.Collection
}

func NewMongoRuleRepo() *MongoRuleRepo {
	return &MongoRuleRepo{coll: database.DB().Collection("availability_rules")}
}

// ActiveRulesFor returns the owner's active weekly rules, ordered by weekday
// then window start.
func (r *MongoRuleRepo) ActiveRulesFor(ctx context.Context, ownerID string) ([]models.AvailabilityRule, error) {
	filter := bson.M{"ownerId": ownerID, "active": true}
	opts := options.Find().SetSort(bson.D{{Key: "weekday", Value: 1}, {Key: "start", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query availability rules: %w", err)
	}
	defer cursor.Close(ctx)

	var ruleSet []models.AvailabilityRule
	if err := cursor.All(ctx, &ruleSet); err != nil {
		return nil, fmt.Errorf("failed to decode availability rules: %w", err)
	}
	return ruleSet, nil
}
