package event

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedEvent is returned for webhook event names the pipeline
// has no trigger mapping for.
var ErrUnsupportedEvent = errors.New("unsupported webhook event")

// ErrBadSignature is returned when a webhook signature does not match the
// configured secret.
var ErrBadSignature = errors.New("webhook signature mismatch")

// DecodeWebhook maps a host webhook delivery (the X-GitHub-Event header
// name plus the JSON body) to a trigger.
func DecodeWebhook(eventName string, body []byte) (Trigger, error) {
	switch Type(eventName) {
	case TypePush:
		var payload PushPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return Trigger{}, fmt.Errorf("decode push payload: %w", err)
		}
		return Trigger{Type: TypePush, Push: &payload}, nil

	case TypeReview:
		var payload ReviewPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return Trigger{}, fmt.Errorf("decode review payload: %w", err)
		}
		return Trigger{Type: TypeReview, Review: &payload}, nil

	case TypeDispatch:
		var wrapper struct {
			Inputs DispatchInput `json:"inputs"`
		}
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return Trigger{}, fmt.Errorf("decode dispatch payload: %w", err)
		}
		return Trigger{Type: TypeDispatch, Dispatch: &wrapper.Inputs}, nil
	}

	return Trigger{}, fmt.Errorf("%w: %s", ErrUnsupportedEvent, eventName)
}

// VerifySignature checks the X-Hub-Signature-256 header against the
// shared webhook secret. An empty secret disables verification.
func VerifySignature(secret string, header string, body []byte) error {
	if secret == "" {
		return nil
	}

	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return ErrBadSignature
	}
	want, err := hex.DecodeString(sig)
	if err != nil {
		return ErrBadSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), want) {
		return ErrBadSignature
	}
	return nil
}
