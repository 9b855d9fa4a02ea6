package models

import "time"

// OAuthToken holds the credential material for one connected calendar account.
type OAuthToken struct {
	AccessToken  string    `bson:"accessToken" json:"-"`
	RefreshToken string    `bson:"refreshToken" json:"-"`
	Expiry       time.Time `bson:"expiry" json:"-"`
}

// CalendarAccount is an externally connected calendar whose busy periods may
// count against an owner's availability. Only accounts with
// IncludeInAvailability set participate in slot computation.
type CalendarAccount struct {
	ID                    string     `bson:"id" json:"id"`
	OwnerID               string     `bson:"ownerId" json:"ownerId"`
	Provider              string     `bson:"provider" json:"provider"` // e.g. "google"
	Email                 string     `bson:"email" json:"email"`
	CalendarID            string     `bson:"calendarId" json:"calendarId"`
	IncludeInAvailability bool       `bson:"includeInAvailability" json:"includeInAvailability"`
	Token                 OAuthToken `bson:"token" json:"-"`
}
