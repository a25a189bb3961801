package models

import "time"

// StreamStatus is the cluster-wide on-air state.
type StreamStatus struct {
	Live      bool       `json:"live"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
}

// StreamStatusEvent is published on the stream status channel on every transition.
type StreamStatusEvent struct {
	Live      bool       `json:"live"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
}

// SetStreamStatusRequest is the body of the manual override endpoint.
type SetStreamStatusRequest struct {
	Live *bool `json:"live" binding:"required"`
}
