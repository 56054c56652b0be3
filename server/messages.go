package server

import (
	"encoding/json"

	"github.com/nathoo/isotactics/types"
)

const (
	msgSetup  = "setup"
	msgAction = "action"
	msgAck    = "ack"
	msgReject = "reject"
	msgError  = "error"
)

// clientMessage is what a websocket client sends.
type clientMessage struct {
	Type   string          `json:"type"`
	Seq    uint64          `json:"seq,omitempty"`
	Action *actionEnvelope `json:"action,omitempty"`
}

// serverMessage is what the server pushes. Only the fields relevant to
// Type are set.
type serverMessage struct {
	Type   string                  `json:"type"`
	Seq    uint64                  `json:"seq,omitempty"`
	Index  int                     `json:"index,omitempty"`
	Setup  *types.Setup            `json:"setup,omitempty"`
	Action *types.SerializedAction `json:"action,omitempty"`
	Code   string                  `json:"code,omitempty"`
	Reason string                  `json:"reason,omitempty"`
}

type actionEnvelope struct {
	types.SerializedAction
}

// playerID peeks at the acting player without decoding the full payload.
func (a actionEnvelope) playerID() string {
	var p struct {
		PlayerID string `json:"playerId"`
	}
	_ = json.Unmarshal(a.Payload, &p)
	return p.PlayerID
}

type createRequest struct {
	Title string      `json:"title"`
	Setup types.Setup `json:"setup"`
}

type matchSummary struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Phase   string `json:"phase"`
	Actions int    `json:"actions"`
	Winner  string `json:"winner,omitempty"`
}

type apiErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiError struct {
	Error apiErrorBody `json:"error"`
}
