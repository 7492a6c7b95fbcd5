package voice

import (
	"encoding/json"
	"errors"
	"fmt"
)

const EventEndOfCallReport = "end-of-call-report"

var ErrMalformedEvent = errors.New("malformed voice event")

// Event is a server message delivered to the webhook endpoint.
type Event struct {
	Type string
	Call Call
}

type envelope struct {
	Message struct {
		Type         string   `json:"type"`
		Call         Call     `json:"call"`
		Analysis     Analysis `json:"analysis"`
		Artifact     Artifact `json:"artifact"`
		Transcript   string   `json:"transcript"`
		Summary      string   `json:"summary"`
		RecordingURL string   `json:"recordingUrl"`
		Cost         float64  `json:"cost"`
		EndedReason  string   `json:"endedReason"`
	} `json:"message"`
}

// ParseEvent decodes a webhook body. Report-level fields (transcript,
// summary, cost, recording) override those on the embedded call.
func ParseEvent(body []byte) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	msg := env.Message
	if msg.Type == "" {
		return nil, fmt.Errorf("%w: missing message type", ErrMalformedEvent)
	}

	call := msg.Call
	if msg.Transcript != "" {
		call.Transcript = msg.Transcript
	}
	if msg.Artifact.Transcript != "" {
		call.Artifact.Transcript = msg.Artifact.Transcript
	}
	if msg.Artifact.RecordingURL != "" {
		call.Artifact.RecordingURL = msg.Artifact.RecordingURL
	}
	if msg.Summary != "" {
		call.Summary = msg.Summary
	}
	if msg.Analysis.Summary != "" {
		call.Analysis.Summary = msg.Analysis.Summary
	}
	if msg.RecordingURL != "" {
		call.RecordingURL = msg.RecordingURL
	}
	if msg.Cost > 0 {
		call.Cost = msg.Cost
	}
	if msg.EndedReason != "" {
		call.EndedReason = msg.EndedReason
	}
	if msg.Type == EventEndOfCallReport && call.Status == "" {
		call.Status = "ended"
	}

	return &Event{Type: msg.Type, Call: call}, nil
}
