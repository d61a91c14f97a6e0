package webhook

import "encoding/json"

// Event types delivered by EventSub.
const (
	EventStreamOnline  = "stream.online"
	EventStreamOffline = "stream.offline"
)

// InboundEvent is a decoded push notification. Online events carry no
// stream title or game; consumers re-fetch metadata from the API.
type InboundEvent struct {
	Type             string
	BroadcasterID    string
	BroadcasterLogin string
	BroadcasterName  string
}

// envelope mirrors the EventSub notification body.
type envelope struct {
	Challenge    string `json:"challenge"`
	Subscription struct {
		Type      string `json:"type"`
		Condition struct {
			BroadcasterUserID string `json:"broadcaster_user_id"`
		} `json:"condition"`
	} `json:"subscription"`
	Event struct {
		BroadcasterUserID    string `json:"broadcaster_user_id"`
		BroadcasterUserLogin string `json:"broadcaster_user_login"`
		BroadcasterUserName  string `json:"broadcaster_user_name"`
	} `json:"event"`
}

func decodeEnvelope(body []byte) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

func (env *envelope) inboundEvent() InboundEvent {
	broadcasterID := env.Event.BroadcasterUserID
	if broadcasterID == "" {
		broadcasterID = env.Subscription.Condition.BroadcasterUserID
	}
	return InboundEvent{
		Type:             env.Subscription.Type,
		BroadcasterID:    broadcasterID,
		BroadcasterLogin: env.Event.BroadcasterUserLogin,
		BroadcasterName:  env.Event.BroadcasterUserName,
	}
}
