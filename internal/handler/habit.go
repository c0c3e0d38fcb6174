package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/habit-tracker/internal/auth"
	"github.com/sakif/habit-tracker/internal/model"
	"github.com/sakif/habit-tracker/internal/repository"
	"github.com/sakif/habit-tracker/internal/service"
)

// HabitHandler exposes the habit collection over HTTP.
//
// ROUTES OWNED BY THIS HANDLER (all under RequireAuth):
//
//	GET    /api/habits              → list (optional ?date=YYYY-MM-DD due filter)
//	POST   /api/habits              → create
//	GET    /api/habits/{id}         → detail + stats + resolved color
//	PATCH  /api/habits/{id}         → partial update
//	DELETE /api/habits/{id}         → delete (idempotent)
//	POST   /api/habits/{id}/toggle  → toggle a completion date
//	POST   /api/habits/reorder      → move a habit within the ordering
//	GET    /api/habits/export       → JSON download of the full collection
//	GET    /api/profile             → user record + aggregate stats
//
// Plus the unauthenticated palette routes:
//
//	GET /api/palette/colors
//	GET /api/palette/icons
//
// The handler parses and responds; every decision lives in the service.
type HabitHandler struct {
	habits *service.HabitService
	logger *slog.Logger
}

// NewHabitHandler creates a HabitHandler.
func NewHabitHandler(habits *service.HabitService, logger *slog.Logger) *HabitHandler {
	return &HabitHandler{habits: habits, logger: logger}
}

// userID pulls the authenticated user out of the request context. On a
// RequireAuth-protected route this always succeeds; the empty-string
// fallthrough lets the service return a clean auth_required anyway.
func userID(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}

// HandleList returns the user's habits in display order.
//
// HTTP: GET /api/habits?date=YYYY-MM-DD
//
// Without ?date the full collection is returned. With ?date only habits
// whose repeat set contains that date's weekday are returned — pass
// today's date to get the "due today" view.
func (h *HabitHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	habits, err := h.habits.List(r.Context(), userID(r), r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, habits)
}

// HandleCreate saves a new habit.
//
// HTTP: POST /api/habits
// REQUEST BODY: {"name":"Read","icon":"mdi-book-open-page-variant",
//
//	"colorId":"teal","reminderEnabled":true,"reminderTime":"08:00",
//	"repeatDays":[1,2,3,4,5]}
func (h *HabitHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.HabitInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.logger.Warn("invalid habit JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "request body is not valid JSON",
		})
		return
	}

	habit, err := h.habits.Create(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, habit)
}

// habitDetail is the GET /api/habits/{id} response shape: the habit, its
// derived statistics, and the palette entry its colorId resolves to.
type habitDetail struct {
	model.Habit
	Stats service.Stats    `json:"stats"`
	Color model.HabitColor `json:"color"`
}

// HandleGet returns one habit with stats.
//
// HTTP: GET /api/habits/{id}
//
// The color field is the RESOLVED palette entry: a colorId that no longer
// exists in the palette falls back to the first entry instead of erroring.
func (h *HabitHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	habit, stats, err := h.habits.Get(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, habitDetail{
		Habit: *habit,
		Stats: stats,
		Color: model.ColorByID(habit.ColorID),
	})
}

// HandleUpdate applies a partial update.
//
// HTTP: PATCH /api/habits/{id}
//
// Only fields present in the body change; absent fields keep their stored
// value. Pointer fields in HabitUpdate make "absent" and "zero value"
// distinguishable after decoding.
func (h *HabitHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in repository.HabitUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.logger.Warn("invalid habit update JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "request body is not valid JSON",
		})
		return
	}

	habit, err := h.habits.Update(r.Context(), userID(r), r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, habit)
}

// HandleDelete removes a habit and its completion history.
//
// HTTP: DELETE /api/habits/{id}
//
// Always 204 for a well-formed request — deleting an already-deleted
// habit succeeds, so a double-pressed delete button can't surface an
// error.
func (h *HabitHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.habits.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// toggleRequest is the POST /api/habits/{id}/toggle body. Date is
// optional; empty means today.
type toggleRequest struct {
	Date string `json:"date"`
}

// HandleToggle flips the completion state for one date.
//
// HTTP: POST /api/habits/{id}/toggle
// REQUEST BODY: {"date":"2026-03-14"} or {} for today
//
// An empty body is also accepted as "toggle today" — io.EOF from the
// decoder is not an error here.
func (h *HabitHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	var in toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("invalid toggle JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "request body is not valid JSON",
		})
		return
	}

	result, err := h.habits.ToggleCompletion(r.Context(), userID(r), r.PathValue("id"), in.Date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// reorderRequest names the move: take the habit at fromIndex and insert
// it at toIndex, both positions in the current display order.
type reorderRequest struct {
	FromIndex int `json:"fromIndex"`
	ToIndex   int `json:"toIndex"`
}

// HandleReorder moves a habit within the user's ordering.
//
// HTTP: POST /api/habits/reorder
// REQUEST BODY: {"fromIndex":3,"toIndex":0}
//
// Responds with the full re-numbered collection so the client can swap
// its list wholesale instead of patching indices.
func (h *HabitHandler) HandleReorder(w http.ResponseWriter, r *http.Request) {
	var in reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.logger.Warn("invalid reorder JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "request body is not valid JSON",
		})
		return
	}

	habits, err := h.habits.Reorder(r.Context(), userID(r), in.FromIndex, in.ToIndex)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, habits)
}

// HandleExport streams the user's collection as a downloadable JSON file.
//
// HTTP: GET /api/habits/export
//
// Content-Disposition: attachment makes browsers save the response
// instead of rendering it.
func (h *HabitHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := h.habits.Export(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="habits-export.json"`)
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ") // the file is meant to be read by humans too
	if err := enc.Encode(doc); err != nil {
		h.logger.Error("failed to encode export", slog.String("error", err.Error()))
	}
}

// profileResponse is the GET /api/profile shape.
type profileResponse struct {
	User  *model.User          `json:"user"`
	Stats service.ProfileStats `json:"stats"`
}

// HandleProfile returns the signed-in user and their aggregate stats.
//
// HTTP: GET /api/profile
func (h *HabitHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	user, stats, err := h.habits.Profile(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{User: user, Stats: stats})
}

// HandleColors returns the fixed color palette.
//
// HTTP: GET /api/palette/colors
// Auth: none — the palette is static, public data.
func (h *HabitHandler) HandleColors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.HabitColors)
}

// HandleIcons returns the fixed icon catalogue.
//
// HTTP: GET /api/palette/icons
func (h *HabitHandler) HandleIcons(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.HabitIcons)
}
