package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/scythe504/wavelength-backend/internal"
	"github.com/scythe504/wavelength-backend/internal/docstore"
	"github.com/scythe504/wavelength-backend/internal/game"
	"github.com/skip2/go-qrcode"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	// Apply CORS middleware
	r.Use(s.corsMiddleware)

	r.HandleFunc("/", s.HelloWorldHandler).Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/rooms", s.CreateRoomHandler).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/rooms/{roomId}", s.GetRoomHandler).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/rooms/{roomId}", s.DeleteRoomHandler).Methods(http.MethodDelete, http.MethodOptions)
	r.HandleFunc("/rooms/{roomId}/doc", s.PutDocumentHandler).Methods(http.MethodPut, http.MethodOptions)
	r.HandleFunc("/rooms/{roomId}/doc", s.PatchDocumentHandler).Methods(http.MethodPatch, http.MethodOptions)
	r.HandleFunc("/rooms/{roomId}/players", s.JoinRoomHandler).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/rooms/{roomId}/qr", s.RoomQRHandler).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/rooms/{roomId}/stats", s.RoomStatsHandler).Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/ws/{roomId}", s.relay.HandleWebSocket)

	return r
}

// CORS middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	origin := s.allowedOrigin
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")
		w.Header().Set("Access-Control-Allow-Credentials", "false")

		// If it's a websocket upgrade, skip further CORS checks
		if strings.ToLower(r.Header.Get("Upgrade")) == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeResponse sends data in the standard envelope with timing fields.
func writeResponse(w http.ResponseWriter, status int, startTime int64, data any) {
	endTime := time.Now().UnixMilli()
	resp := internal.Response{
		StatusCode:    status,
		RespStartTime: startTime,
		RespEndTime:   endTime,
		NetRespTime:   endTime - startTime,
		Data:          data,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("[writeResponse] encode failed")
	}
}

// writeError maps domain and store errors onto HTTP statuses.
func writeError(w http.ResponseWriter, startTime int64, err error) {
	status := http.StatusInternalServerError
	switch {
	case internal.IsValidation(err):
		status = http.StatusBadRequest
	case errors.Is(err, internal.ErrRoomNotFound), errors.Is(err, docstore.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, docstore.ErrExists), errors.Is(err, internal.ErrGameStarted),
		errors.Is(err, internal.ErrTooManyPlayers):
		status = http.StatusConflict
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("[writeError] request failed")
		msg = "internal server error"
	}
	writeResponse(w, status, startTime, msg)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return internal.Invalid("malformed request body: %v", err)
	}
	return nil
}

func (s *Server) HelloWorldHandler(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, http.StatusOK, time.Now().UnixMilli(), map[string]string{"message": "wavelength relay"})
}

// CreateRoomHandler opens a lobby with the caller as host.
func (s *Server) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	var req internal.JoinRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, startTime, err)
		return
	}
	state, err := game.CreateRoom(r.Context(), s.store, s.rng, req.Name, req.Color)
	if err != nil {
		writeError(w, startTime, err)
		return
	}
	writeResponse(w, http.StatusCreated, startTime, internal.JoinResponse{
		RoomId: state.RoomId,
		Player: state.Players[state.HostId],
	})
}

// JoinRoomHandler seats the caller in an existing lobby.
func (s *Server) JoinRoomHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	roomId := mux.Vars(r)["roomId"]
	var req internal.JoinRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, startTime, err)
		return
	}
	player, err := game.JoinRoom(r.Context(), s.store, roomId, req.Name, req.Color)
	if err != nil {
		writeError(w, startTime, err)
		return
	}
	writeResponse(w, http.StatusCreated, startTime, internal.JoinResponse{RoomId: roomId, Player: player})
}

func (s *Server) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	doc, err := s.store.Get(r.Context(), mux.Vars(r)["roomId"])
	if err != nil {
		writeError(w, startTime, err)
		return
	}
	writeResponse(w, http.StatusOK, startTime, doc)
}

func (s *Server) DeleteRoomHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	if err := game.DeleteRoom(r.Context(), s.store, mux.Vars(r)["roomId"]); err != nil {
		writeError(w, startTime, err)
		return
	}
	writeResponse(w, http.StatusOK, startTime, "deleted")
}

// PutDocumentHandler creates a room from a whole document.
func (s *Server) PutDocumentHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	var doc docstore.Document
	if err := decodeBody(w, r, &doc); err != nil {
		writeError(w, startTime, err)
		return
	}
	if doc == nil {
		writeError(w, startTime, internal.Invalid("document must be an object"))
		return
	}
	if err := s.store.Create(r.Context(), mux.Vars(r)["roomId"], doc); err != nil {
		writeError(w, startTime, err)
		return
	}
	writeResponse(w, http.StatusCreated, startTime, "created")
}

// PatchDocumentHandler merges fields at a path.
func (s *Server) PatchDocumentHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	var patch internal.PatchData
	if err := decodeBody(w, r, &patch); err != nil {
		writeError(w, startTime, err)
		return
	}
	if err := s.store.Patch(r.Context(), mux.Vars(r)["roomId"], patch.Path, patch.Fields); err != nil {
		writeError(w, startTime, err)
		return
	}
	writeResponse(w, http.StatusOK, startTime, "patched")
}

func (s *Server) RoomStatsHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	state, err := game.LoadRoom(r.Context(), s.store, mux.Vars(r)["roomId"])
	if err != nil {
		writeError(w, startTime, err)
		return
	}
	writeResponse(w, http.StatusOK, startTime, game.GetRoomStats(state))
}

// RoomQRHandler renders a PNG QR code of the room's join link.
func (s *Server) RoomQRHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now().UnixMilli()
	roomId := mux.Vars(r)["roomId"]
	if _, err := s.store.Get(r.Context(), roomId); err != nil {
		writeError(w, startTime, err)
		return
	}

	base := strings.TrimRight(s.publicURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}

	const qrSize = 320
	png, err := qrcode.Encode(fmt.Sprintf("%s/?room=%s", base, roomId), qrcode.Medium, qrSize)
	if err != nil {
		writeError(w, startTime, fmt.Errorf("encode qr: %w", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}
