package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopify-app-auth/internal/domain"
	"shopify-app-auth/internal/infrastructure/repository/entity"
	"shopify-app-auth/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoClientRepository implements ClientRepository using MongoDB.
// Access tokens are sealed with the encryption service before they are written.
type MongoClientRepository struct {
	collection    *mongo.Collection
	encryptionSvc ports.EncryptionService
}

// NewMongoClientRepository creates a new MongoDB client repository
func NewMongoClientRepository(db *mongo.Database, encryptionSvc ports.EncryptionService) *MongoClientRepository {
	return &MongoClientRepository{
		collection:    db.Collection("clients"),
		encryptionSvc: encryptionSvc,
	}
}

// EnsureIndexes creates the unique index on shop_name
func (r *MongoClientRepository) EnsureIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "shop_name", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("failed to create clients index: %w", err)
	}
	return nil
}

// GetByShopName retrieves a client by shop name
func (r *MongoClientRepository) GetByShopName(ctx context.Context, shopName string) (*domain.Client, error) {
	var doc entity.MongoClientDoc
	filter := bson.M{"shop_name": shopName}

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	client := doc.ToDomain()
	if client.AccessToken != "" {
		token, err := r.encryptionSvc.Decrypt(client.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt access token: %w", err)
		}
		client.AccessToken = token
	}

	return client, nil
}

// Save inserts or updates a client keyed by shop name
func (r *MongoClientRepository) Save(ctx context.Context, client *domain.Client) error {
	now := time.Now().UTC()
	doc := entity.MongoClientDocFromDomain(client)
	doc.UpdatedAt = now
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}

	if doc.AccessToken != nil {
		sealed, err := r.encryptionSvc.Encrypt(*doc.AccessToken)
		if err != nil {
			return fmt.Errorf("failed to encrypt access token: %w", err)
		}
		doc.AccessToken = &sealed
	}

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"shop_name": client.ShopName}
	update := bson.M{
		"$set": bson.M{
			"shop_url":       doc.ShopURL,
			"access_token":   doc.AccessToken,
			"is_active":      doc.IsActive,
			"email":          doc.Email,
			"phone_number":   doc.PhoneNumber,
			"country":        doc.Country,
			"uninstall_date": doc.UninstallDate,
			"trial_used":     doc.TrialUsed,
			"updated_at":     doc.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"created_at": doc.CreatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save client: %w", err)
	}

	client.UpdatedAt = doc.UpdatedAt
	if client.CreatedAt.IsZero() {
		client.CreatedAt = doc.CreatedAt
	}
	if id, ok := result.UpsertedID.(primitive.ObjectID); ok {
		client.ID = id.Hex()
	}

	return nil
}
