package internal

import "encoding/json"

type Message[T any] struct {
	Type string `json:"type"`
	Data T      `json:"data"`
}

const (
	MessageSnapshot = "snapshot"
	MessagePatch    = "patch"
	MessageError    = "error"
)

type SnapshotData struct {
	RoomId   string         `json:"room_id"`
	Document map[string]any `json:"document"`
}

type PatchData struct {
	Path   string         `json:"path"`
	Fields map[string]any `json:"fields"`
}

type ErrorData struct {
	Message string `json:"message"`
}

type Response struct {
	StatusCode    int   `json:"status_code"`
	RespStartTime int64 `json:"resp_time_start_ms"`
	RespEndTime   int64 `json:"resp_time_end_ms"`
	NetRespTime   int64 `json:"net_resp_time_ms"`
	Data          any   `json:"data"`
}

type JoinRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type JoinResponse struct {
	RoomId string `json:"room_id"`
	Player Player `json:"player"`
}

// Document encodes the state into the plain JSON shape the store keeps.
func (s SessionState) Document() (map[string]any, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// DecodeState rebuilds typed state, including sets, from a store document.
func DecodeState(doc map[string]any) (SessionState, error) {
	var s SessionState
	b, err := json.Marshal(doc)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return s, err
	}
	if s.Players == nil {
		s.Players = map[string]Player{}
	}
	if s.SharedMemos == nil {
		s.SharedMemos = map[string]string{}
	}
	if s.AllGuesses == nil {
		s.AllGuesses = GuessTable{}
	}
	return s, nil
}

// Encode turns any value into plain JSON types for a store patch.
func Encode(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
