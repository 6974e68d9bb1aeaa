package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/codesync/codesync-backend/internal/domain"
	"github.com/codesync/codesync-backend/internal/service"
	"github.com/codesync/codesync-backend/internal/store"
	httpmw "github.com/codesync/codesync-backend/internal/transport/http/middleware"
	"github.com/codesync/codesync-backend/pkg/httputil"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	authSvc *service.AuthService
	roomSvc *service.RoomService
}

func NewHandler(auth *service.AuthService, room *service.RoomService) *Handler {
	return &Handler{
		authSvc: auth,
		roomSvc: room,
	}
}

// POST /api/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := h.authSvc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, r, "handler.Register", err)
		return
	}

	httputil.JSON(w, http.StatusCreated, AuthResponse{Token: res.AccessToken, User: toUserItem(res.User)})
}

// POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := h.authSvc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, "handler.Login", err)
		return
	}

	httputil.JSON(w, http.StatusOK, AuthResponse{Token: res.AccessToken, User: toUserItem(res.User)})
}

// GET /api/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ident, _ := httpmw.IdentityFromCtx(r.Context())
	u, err := h.authSvc.Me(r.Context(), ident)
	if err != nil {
		writeError(w, r, "handler.Me", err)
		return
	}

	httputil.JSON(w, http.StatusOK, MeResponse{User: toUserItem(u)})
}

// GET /api/rooms?limit=&cursor=
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	ident, _ := httpmw.IdentityFromCtx(r.Context())
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	rooms, next, err := h.roomSvc.ListRooms(r.Context(), ident.Username, limit, r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, r, "handler.ListRooms", err)
		return
	}
	resp := RoomsListResponse{Rooms: make([]RoomItem, 0, len(rooms)), NextCursor: next}
	for i := range rooms {
		resp.Rooms = append(resp.Rooms, toRoomItem(&rooms[i]))
	}

	httputil.JSON(w, http.StatusOK, resp)
}

// POST /api/rooms
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	ident, _ := httpmw.IdentityFromCtx(r.Context())
	var req CreateRoomRequest
	// the editor posts no body at all
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	room, err := h.roomSvc.CreateRoom(r.Context(), ident.Username, req.Name)
	if err != nil {
		writeError(w, r, "handler.CreateRoom", err)
		return
	}

	httputil.JSON(w, http.StatusCreated, RoomResponse{Room: toRoomItem(room)})
}

// GET /api/rooms/{id}
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.roomSvc.GetRoom(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "handler.GetRoom", err)
		return
	}

	httputil.JSON(w, http.StatusOK, RoomResponse{Room: toRoomItem(room)})
}

// POST /api/rooms/{id}/code
func (h *Handler) SaveCode(w http.ResponseWriter, r *http.Request) {
	ident, _ := httpmw.IdentityFromCtx(r.Context())
	var req SaveCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.roomSvc.SaveCode(r.Context(), ident, chi.URLParam(r, "id"), req.Lang, req.Code); err != nil {
		writeError(w, r, "handler.SaveCode", err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// GET /api/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st := h.roomSvc.Stats()
	httputil.JSON(w, http.StatusOK, StatsResponse{ActiveRooms: st.ActiveRooms, Participants: st.Participants})
}

// writeError is the single place domain errors become HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		verr  *domain.ValidationError
		taken *domain.FieldTakenError
	)
	switch {
	case errors.As(err, &verr):
		httputil.Error(w, http.StatusBadRequest, verr.Msg)
	case errors.As(err, &taken):
		httputil.Error(w, http.StatusConflict, taken.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		httputil.Error(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, domain.ErrRoomNotFound):
		httputil.Error(w, http.StatusNotFound, "Room not found")
	case errors.Is(err, domain.ErrUserNotFound):
		httputil.Error(w, http.StatusNotFound, "User not found")
	case errors.Is(err, store.ErrInvalidCursor):
		httputil.Error(w, http.StatusBadRequest, "invalid cursor")
	case errors.Is(err, domain.ErrInvalidInput):
		httputil.Error(w, http.StatusBadRequest, err.Error())
	default:
		slog.ErrorContext(r.Context(), op+" failed", httputil.RequestIDAttr(r.Context()), slog.Any("err", err))
		httputil.Error(w, http.StatusInternalServerError, "Server error")
	}
}

func toUserItem(u *domain.User) UserItem {
	return UserItem{
		ID:       strconv.FormatInt(u.ID, 10),
		Username: u.Username,
		Email:    u.Email,
		Color:    u.Color,
	}
}

func toRoomItem(v *service.RoomView) RoomItem {
	return RoomItem{
		RoomID:      v.ID,
		Name:        v.Name,
		Owner:       v.Owner,
		Code:        v.Code,
		ActiveUsers: v.ActiveUsers,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}
