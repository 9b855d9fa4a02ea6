package calendar

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"slotwise/models"
)

// GoogleBusySource fetches busy periods from the Google Calendar FreeBusy API.
// It refreshes expired access tokens through the configured OAuth client; the
// refresh attempt is the single retry before AuthExpired surfaces.
type GoogleBusySource struct {
	OAuth *oauth2.Config
	// OnTokenRefresh, when set, receives refreshed credentials so the caller
	// can persist them for the next fetch.
	OnTokenRefresh func(ctx context.Context, accountID string, token *oauth2.Token)
}

func NewGoogleBusySource(clientID, clientSecret string) *GoogleBusySource {
	return &GoogleBusySource{
		OAuth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gcal.CalendarReadonlyScope},
		},
	}
}

// FetchBusy queries the account's calendar for busy intervals over
// [rangeStart, rangeEnd). Intervals come back half-open in UTC.
func (s *GoogleBusySource) FetchBusy(ctx context.Context, account models.CalendarAccount, rangeStart, rangeEnd time.Time) ([]models.BusyInterval, error) {
	stored := &oauth2.Token{
		AccessToken:  account.Token.AccessToken,
		RefreshToken: account.Token.RefreshToken,
		Expiry:       account.Token.Expiry,
	}
	// TokenSource refreshes transparently when the stored token has expired.
	fresh, err := s.OAuth.TokenSource(ctx, stored).Token()
	if err != nil {
		return nil, &FetchError{Code: AuthExpired, AccountID: account.ID, Err: err}
	}
	if s.OnTokenRefresh != nil && fresh.AccessToken != stored.AccessToken {
		s.OnTokenRefresh(ctx, account.ID, fresh)
	}

	service, err := gcal.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(fresh)))
	if err != nil {
		return nil, &FetchError{Code: Unknown, AccountID: account.ID, Err: err}
	}

	calendarID := account.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}
	request := &gcal.FreeBusyRequest{
		TimeMin: rangeStart.UTC().Format(time.RFC3339),
		TimeMax: rangeEnd.UTC().Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: calendarID}},
	}
	response, err := service.Freebusy.Query(request).Context(ctx).Do()
	if err != nil {
		return nil, classifyGoogleError(err, account.ID)
	}

	var busy []models.BusyInterval
	if cal, ok := response.Calendars[calendarID]; ok {
		for _, period := range cal.Busy {
			start, startErr := time.Parse(time.RFC3339, period.Start)
			end, endErr := time.Parse(time.RFC3339, period.End)
			if startErr != nil || endErr != nil || !start.Before(end) {
				continue
			}
			busy = append(busy, models.BusyInterval{Start: start, End: end})
		}
	}
	return busy, nil
}

func classifyGoogleError(err error, accountID string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized:
			return &FetchError{Code: AuthExpired, AccountID: accountID, Err: err}
		case http.StatusForbidden, http.StatusTooManyRequests:
			return &FetchError{Code: RateLimited, AccountID: accountID, Err: err}
		}
	}
	return &FetchError{Code: Unknown, AccountID: accountID, Err: err}
}
