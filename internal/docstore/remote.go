package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/scythe504/wavelength-backend/internal"
)

// RemoteStore talks to a relay server: documents over HTTP, change
// notifications over a websocket per subscription.
type RemoteStore struct {
	baseURL *url.URL
	client  *http.Client
	dialer  *websocket.Dialer
}

func NewRemoteStore(baseURL string) (*RemoteStore, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse relay url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("relay url must be http or https, got %q", u.Scheme)
	}
	return &RemoteStore{
		baseURL: u,
		client:  &http.Client{Timeout: 10 * time.Second},
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}, nil
}

func (r *RemoteStore) endpoint(parts ...string) string {
	u := *r.baseURL
	for _, p := range parts {
		u.Path += "/" + url.PathEscape(p)
	}
	return u.String()
}

func (r *RemoteStore) do(ctx context.Context, method, target string, body any, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	var env struct {
		StatusCode int             `json:"status_code"`
		Data       json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrExists
	}
	if resp.StatusCode >= 300 {
		var msg string
		_ = json.Unmarshal(env.Data, &msg)
		return fmt.Errorf("%s %s: status %d: %s", method, target, resp.StatusCode, msg)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}

func (r *RemoteStore) Create(ctx context.Context, roomId string, doc Document) error {
	if err := r.do(ctx, http.MethodPut, r.endpoint("rooms", roomId, "doc"), doc, nil); err != nil {
		return wrapRoom(err, roomId)
	}
	return nil
}

func (r *RemoteStore) Get(ctx context.Context, roomId string) (Document, error) {
	var doc Document
	if err := r.do(ctx, http.MethodGet, r.endpoint("rooms", roomId), nil, &doc); err != nil {
		return nil, wrapRoom(err, roomId)
	}
	return doc, nil
}

func (r *RemoteStore) Patch(ctx context.Context, roomId, path string, fields map[string]any) error {
	body := internal.PatchData{Path: path, Fields: fields}
	if err := r.do(ctx, http.MethodPatch, r.endpoint("rooms", roomId, "doc"), body, nil); err != nil {
		return wrapRoom(err, roomId)
	}
	return nil
}

func (r *RemoteStore) Delete(ctx context.Context, roomId string) error {
	if err := r.do(ctx, http.MethodDelete, r.endpoint("rooms", roomId), nil, nil); err != nil {
		return wrapRoom(err, roomId)
	}
	return nil
}

func wrapRoom(err error, roomId string) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrExists) {
		return fmt.Errorf("%w: %s", err, roomId)
	}
	return err
}

// Subscribe dials the relay's socket for roomId. The relay pushes the
// current document on connect and after every change.
func (r *RemoteStore) Subscribe(ctx context.Context, roomId string, onChange func(Document)) (func(), error) {
	u := *r.baseURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path += "/ws/" + url.PathEscape(roomId)

	conn, resp, err := r.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, roomId)
		}
		return nil, fmt.Errorf("dial relay: %w", err)
	}

	var once sync.Once
	done := make(chan struct{})
	stop := func() {
		once.Do(func() {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		})
		<-done
	}

	go func() {
		defer close(done)
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Debug().Err(err).Str("room", roomId).Msg("[RemoteStore.Subscribe] read ended")
				}
				return
			}
			var msg internal.Message[internal.SnapshotData]
			if err := json.Unmarshal(raw, &msg); err != nil {
				log.Warn().Err(err).Str("room", roomId).Msg("[RemoteStore.Subscribe] bad message")
				continue
			}
			switch msg.Type {
			case internal.MessageSnapshot:
				onChange(msg.Data.Document)
			case internal.MessageError:
				log.Warn().Str("room", roomId).Msg("[RemoteStore.Subscribe] relay reported an error")
			}
		}
	}()

	return stop, nil
}
