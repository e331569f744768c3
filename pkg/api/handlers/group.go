package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
	"chatrelay/pkg/state"
	"chatrelay/pkg/store"
	"chatrelay/pkg/utils"
	"chatrelay/pkg/validation"
)

// RegisterGroup registers the group-record endpoints.
func RegisterGroup(r *mux.Router, conv *state.Conversation) {
	r.HandleFunc("/group.json", getGroup(conv)).Methods(http.MethodGet)
	r.HandleFunc("/group", updateGroup(conv)).Methods(http.MethodPost)
}

func getGroup(conv *state.Conversation) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		_ = utils.JSONWrite(w, http.StatusOK, conv.CurrentGroupInfo())
	}
}

func updateGroup(conv *state.Conversation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var u models.GroupUpdate
		if err := decodeStrict(r, &u); err != nil {
			writePlain(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if err := validation.ValidateGroupUpdate(u); err != nil {
			writePlain(w, http.StatusBadRequest, "Username required")
			return
		}

		changed, _, _, err := conv.UpdateGroupInfo(u)
		if err != nil {
			var se *store.StorageError
			if errors.As(err, &se) {
				writePlain(w, http.StatusInternalServerError, "Storage Error")
				return
			}
			writePlain(w, http.StatusInternalServerError, "Server Error")
			return
		}
		if len(changed) > 0 {
			logger.Info("group_update_accepted", "username", u.Username, "fields", strings.Join(changed, ","))
		}

		// "accepted, nothing changed" is still a success
		writePlain(w, http.StatusOK, "ok")
	}
}
