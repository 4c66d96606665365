package domain

import "time"

// Client is the persisted record of a shop that installed the app.
// ShopName is the unique key; AccessToken is empty whenever the shop is logged out or uninstalled.
type Client struct {
	ID            string     `json:"id" bson:"_id"`
	ShopName      string     `json:"shop_name" bson:"shop_name"`
	ShopURL       string     `json:"shop_url" bson:"shop_url"`
	AccessToken   string     `json:"-" bson:"access_token"`
	IsActive      bool       `json:"is_active" bson:"is_active"`
	Email         string     `json:"email" bson:"email"`
	PhoneNumber   string     `json:"phone_number" bson:"phone_number"`
	Country       string     `json:"country" bson:"country"`
	UninstallDate *time.Time `json:"uninstall_date,omitempty" bson:"uninstall_date"`
	TrialUsed     bool       `json:"trial_used" bson:"trial_used"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" bson:"updated_at"`
}

// ClientDetails carries the optional contact fields sent along with the OAuth callback.
// A nil field was absent from the callback.
type ClientDetails struct {
	Email       *string
	PhoneNumber *string
	Country     *string
}

// ClientDetailsFromParams picks the contact fields out of callback query parameters.
func ClientDetailsFromParams(params map[string]string) ClientDetails {
	var d ClientDetails
	if v, ok := params["email"]; ok {
		d.Email = &v
	}
	if v, ok := params["phone_number"]; ok {
		d.PhoneNumber = &v
	}
	if v, ok := params["country"]; ok {
		d.Country = &v
	}
	return d
}

// NewClient builds the record for a shop seen for the first time.
func NewClient(shop string, details ClientDetails, accessToken string) *Client {
	return &Client{
		ShopName:    shop,
		ShopURL:     shop,
		AccessToken: accessToken,
		IsActive:    true,
		Email:       valueOr(details.Email, ""),
		PhoneNumber: valueOr(details.PhoneNumber, ""),
		Country:     valueOr(details.Country, ""),
	}
}

// Reactivate applies a successful login to an existing record.
// Contact fields keep their stored value when absent from details.
func (c *Client) Reactivate(shop string, details ClientDetails, accessToken string) {
	c.Email = valueOr(details.Email, c.Email)
	c.PhoneNumber = valueOr(details.PhoneNumber, c.PhoneNumber)
	c.Country = valueOr(details.Country, c.Country)
	c.ShopURL = shop
	c.AccessToken = accessToken
	c.IsActive = true
	c.UninstallDate = nil
	c.TrialUsed = false
}

// Deactivate drops the access token and marks the client inactive.
func (c *Client) Deactivate() {
	c.AccessToken = ""
	c.IsActive = false
}

// MarkUninstalled deactivates the client and records when the app was removed.
func (c *Client) MarkUninstalled(at time.Time) {
	c.Deactivate()
	c.UninstallDate = &at
}

func valueOr(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}
