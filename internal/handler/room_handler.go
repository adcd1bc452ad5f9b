/*
Package handler provides HTTP handler functions for room listing and message history.
*/
package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"relaychat/internal/app/store"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/resp"
)

// HandleListRooms returns the rooms the authenticated user is a member of.
func HandleListRooms(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := authedUserID(w, r)
		if !ok {
			return
		}

		rooms, err := deps.Store.ListRoomsForUser(r.Context(), userID)
		if err != nil {
			logx.Error(err, "failed to list rooms for user", "user_id", userID.String())
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"rooms": rooms,
		})
	}
}

// HandleRoomMessages returns a room's message history in creation order, each
// entry enriched with the sender's display name.
func HandleRoomMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := authedUserID(w, r)
		if !ok {
			return
		}

		roomID, err := uuid.Parse(chi.URLParam(r, "roomID"))
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if _, err := deps.Store.GetRoom(r.Context(), roomID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrRoomNotFound))
				return
			}

			logx.Error(err, "failed to load room", "room_id", roomID.String())
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed))
			return
		}

		messages, err := deps.Store.ListMessages(r.Context(), roomID)
		if err != nil {
			logx.Error(err, "failed to list room messages", "room_id", roomID.String())
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"messages": messages,
			"userId":   userID.String(),
		})
	}
}
