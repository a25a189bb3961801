package models

import (
	"encoding/json"
	"time"
)

// Twitch EventSub request headers
const (
	TwitchMessageID        = "Twitch-Eventsub-Message-Id"
	TwitchMessageTimestamp = "Twitch-Eventsub-Message-Timestamp"
	TwitchMessageSignature = "Twitch-Eventsub-Message-Signature"
	TwitchMessageType      = "Twitch-Eventsub-Message-Type"

	TwitchSignaturePrefix = "sha256="
)

// Twitch EventSub message types
const (
	TwitchMessageVerification = "webhook_callback_verification"
	TwitchMessageNotification = "notification"
	TwitchMessageRevocation   = "revocation"
)

// Twitch EventSub subscription types handled by the relay
const (
	TwitchStreamOnline  = "stream.online"
	TwitchStreamOffline = "stream.offline"
)

type EventSubPayload struct {
	Challenge    string               `json:"challenge,omitempty"`
	Subscription EventSubSubscription `json:"subscription"`
	Event        json.RawMessage      `json:"event,omitempty"`
}

type EventSubSubscription struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Type    string `json:"type"`
	Version string `json:"version"`
}

type StreamOnlineEvent struct {
	ID                   string    `json:"id"`
	BroadcasterUserID    string    `json:"broadcaster_user_id"`
	BroadcasterUserLogin string    `json:"broadcaster_user_login"`
	Type                 string    `json:"type"`
	StartedAt            time.Time `json:"started_at"`
}

type StreamOfflineEvent struct {
	BroadcasterUserID    string `json:"broadcaster_user_id"`
	BroadcasterUserLogin string `json:"broadcaster_user_login"`
}
