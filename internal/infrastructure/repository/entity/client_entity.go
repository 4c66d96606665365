package entity

import (
	"time"

	"shopify-app-auth/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoClientDoc represents a client in MongoDB
type MongoClientDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	ShopName      string             `bson:"shop_name"`
	ShopURL       string             `bson:"shop_url"`
	AccessToken   *string            `bson:"access_token"`
	IsActive      bool               `bson:"is_active"`
	Email         string             `bson:"email"`
	PhoneNumber   string             `bson:"phone_number"`
	Country       string             `bson:"country"`
	UninstallDate *time.Time         `bson:"uninstall_date"`
	TrialUsed     bool               `bson:"trial_used"`
	CreatedAt     time.Time          `bson:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at"`
}

// ToDomain converts the MongoDB document to a domain entity.
// The access token is returned as stored; callers decrypt it.
func (d *MongoClientDoc) ToDomain() *domain.Client {
	c := &domain.Client{
		ShopName:      d.ShopName,
		ShopURL:       d.ShopURL,
		IsActive:      d.IsActive,
		Email:         d.Email,
		PhoneNumber:   d.PhoneNumber,
		Country:       d.Country,
		UninstallDate: d.UninstallDate,
		TrialUsed:     d.TrialUsed,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if !d.ID.IsZero() {
		c.ID = d.ID.Hex()
	}
	if d.AccessToken != nil {
		c.AccessToken = *d.AccessToken
	}
	return c
}

// MongoClientDocFromDomain converts a domain entity to a MongoDB document.
// An empty access token is stored as null.
func MongoClientDocFromDomain(client *domain.Client) *MongoClientDoc {
	doc := &MongoClientDoc{
		ShopName:      client.ShopName,
		ShopURL:       client.ShopURL,
		IsActive:      client.IsActive,
		Email:         client.Email,
		PhoneNumber:   client.PhoneNumber,
		Country:       client.Country,
		UninstallDate: client.UninstallDate,
		TrialUsed:     client.TrialUsed,
		CreatedAt:     client.CreatedAt,
		UpdatedAt:     client.UpdatedAt,
	}

	if client.AccessToken != "" {
		token := client.AccessToken
		doc.AccessToken = &token
	}

	if client.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(client.ID); err == nil {
			doc.ID = objID
		}
	}

	return doc
}
