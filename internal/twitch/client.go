package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nicklaw5/helix/v2"
	"github.com/streamherald/streamherald-bot/internal/health"
	"golang.org/x/time/rate"
)

const helixBaseURL = "https://api.twitch.tv/helix"

// ErrSubscriptionExists is returned when the platform already has an
// equivalent EventSub subscription registered.
var ErrSubscriptionExists = errors.New("eventsub subscription already exists")

// ErrScheduleNotFound is returned when a broadcaster has no stream schedule.
var ErrScheduleNotFound = errors.New("broadcaster has no schedule")

// User is a Twitch account, decoded at the client boundary.
type User struct {
	ID              string
	Login           string
	DisplayName     string
	ProfileImageURL string
}

// Stream is a currently-live stream's metadata.
type Stream struct {
	Title        string
	GameName     string
	ThumbnailURL string
	UserLogin    string
	UserName     string
	ViewerCount  int
	StartedAt    time.Time
}

// Subscription is a registered EventSub webhook as reported by the platform.
// Never persisted; reconciled against notification rows.
type Subscription struct {
	ID            string
	Type          string
	BroadcasterID string
	Status        string
}

// ScheduleSegment is one planned stream in a broadcaster's schedule.
type ScheduleSegment struct {
	Title       string    `json:"title"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	IsRecurring bool      `json:"is_recurring"`
	Category    *struct {
		Name string `json:"name"`
	} `json:"category"`
}

// Client wraps the Helix API with app-token auth, client-side rate limiting
// and API health recording.
type Client struct {
	helix      *helix.Client
	httpClient *http.Client
	limiter    *rate.Limiter
	aggregator *health.Aggregator
	clientID   string

	mu       sync.RWMutex
	appToken string
}

// NewClient builds a Client. Call Authenticate before issuing requests.
func NewClient(clientID, clientSecret string, aggregator *health.Aggregator) (*Client, error) {
	hc, err := helix.NewClient(&helix.Options{
		ClientID:     clientID,
		ClientSecret: clientSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create helix client: %w", err)
	}

	return &Client{
		helix:      hc,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(5), 10),
		aggregator: aggregator,
		clientID:   clientID,
	}, nil
}

// Authenticate requests an app access token and installs it on the client.
func (c *Client) Authenticate(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := c.helix.RequestAppAccessToken([]string{})
	c.record(err == nil)
	if err != nil {
		return fmt.Errorf("failed to request app access token: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("app token request returned status %d: %s", resp.StatusCode, resp.ErrorMessage)
	}

	c.mu.Lock()
	c.appToken = resp.Data.AccessToken
	c.mu.Unlock()
	c.helix.SetAppAccessToken(resp.Data.AccessToken)
	return nil
}

// GetUserByLogin resolves a login name. Returns (nil, nil) when the user
// does not exist.
func (c *Client) GetUserByLogin(ctx context.Context, login string) (*User, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.helix.GetUsers(&helix.UsersParams{Logins: []string{login}})
	c.record(err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user %q: %w", login, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user lookup returned status %d: %s", resp.StatusCode, resp.ErrorMessage)
	}
	if len(resp.Data.Users) == 0 {
		return nil, nil
	}

	u := resp.Data.Users[0]
	return &User{
		ID:              u.ID,
		Login:           u.Login,
		DisplayName:     u.DisplayName,
		ProfileImageURL: u.ProfileImageURL,
	}, nil
}

// GetStream returns the broadcaster's live stream, or (nil, nil) when they
// are not live. A webhook online event carries no title or game; callers
// re-fetch authoritative metadata here.
func (c *Client) GetStream(ctx context.Context, broadcasterID string) (*Stream, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.helix.GetStreams(&helix.StreamsParams{UserIDs: []string{broadcasterID}})
	c.record(err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stream for %s: %w", broadcasterID, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stream lookup returned status %d: %s", resp.StatusCode, resp.ErrorMessage)
	}
	if len(resp.Data.Streams) == 0 {
		return nil, nil
	}

	s := resp.Data.Streams[0]
	return &Stream{
		Title:        s.Title,
		GameName:     s.GameName,
		ThumbnailURL: s.ThumbnailURL,
		UserLogin:    s.UserLogin,
		UserName:     s.UserName,
		ViewerCount:  s.ViewerCount,
		StartedAt:    s.StartedAt,
	}, nil
}

// CreateSubscription registers a webhook EventSub subscription and returns
// its id. A platform-side duplicate maps to ErrSubscriptionExists.
func (c *Client) CreateSubscription(ctx context.Context, subType, broadcasterID, callbackURL, secret string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := c.helix.CreateEventSubSubscription(&helix.EventSubSubscription{
		Type:    subType,
		Version: "1",
		Condition: helix.EventSubCondition{
			BroadcasterUserID: broadcasterID,
		},
		Transport: helix.EventSubTransport{
			Method:   "webhook",
			Callback: callbackURL,
			Secret:   secret,
		},
	})
	c.record(err == nil)
	if err != nil {
		return "", fmt.Errorf("failed to create %s subscription for %s: %w", subType, broadcasterID, err)
	}
	if resp.StatusCode == http.StatusConflict {
		return "", ErrSubscriptionExists
	}
	if resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("subscription create returned status %d: %s", resp.StatusCode, resp.ErrorMessage)
	}
	if len(resp.Data.EventSubSubscriptions) == 0 {
		return "", errors.New("subscription create returned no subscription")
	}
	return resp.Data.EventSubSubscriptions[0].ID, nil
}

// DeleteSubscription revokes one EventSub subscription.
func (c *Client) DeleteSubscription(ctx context.Context, subscriptionID string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := c.helix.RemoveEventSubSubscription(subscriptionID)
	c.record(err == nil)
	if err != nil {
		return fmt.Errorf("failed to delete subscription %s: %w", subscriptionID, err)
	}
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("subscription delete returned status %d: %s", resp.StatusCode, resp.ErrorMessage)
	}
	return nil
}

// ListSubscriptions pages through every registered EventSub subscription.
func (c *Client) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	var subs []Subscription
	cursor := ""

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := c.helix.GetEventSubSubscriptions(&helix.EventSubSubscriptionsParams{After: cursor})
		c.record(err == nil)
		if err != nil {
			return nil, fmt.Errorf("failed to list subscriptions: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("subscription list returned status %d: %s", resp.StatusCode, resp.ErrorMessage)
		}

		for _, s := range resp.Data.EventSubSubscriptions {
			subs = append(subs, Subscription{
				ID:            s.ID,
				Type:          s.Type,
				BroadcasterID: s.Condition.BroadcasterUserID,
				Status:        s.Status,
			})
		}

		cursor = resp.Data.Pagination.Cursor
		if cursor == "" {
			return subs, nil
		}
	}
}

// GetSchedule fetches up to first planned schedule segments. The Helix
// wrapper has no schedule endpoint, so this goes to the REST API directly.
func (c *Client) GetSchedule(ctx context.Context, broadcasterID string, first int) ([]ScheduleSegment, error) {
	if first <= 0 {
		first = 5
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, helixBaseURL+"/schedule", nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("broadcaster_id", broadcasterID)
	q.Set("first", fmt.Sprintf("%d", first))
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", c.clientID)
	c.mu.RLock()
	req.Header.Set("Authorization", "Bearer "+c.appToken)
	c.mu.RUnlock()

	resp, err := c.httpClient.Do(req)
	c.record(err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedule for %s: %w", broadcasterID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrScheduleNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("schedule fetch returned status %d", resp.StatusCode)
	}

	var body struct {
		Data struct {
			Segments []ScheduleSegment `json:"segments"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode schedule response: %w", err)
	}
	return body.Data.Segments, nil
}

func (c *Client) record(success bool) {
	if c.aggregator != nil {
		c.aggregator.RecordCall(success)
	}
}
