package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
	"chatrelay/pkg/state"
	"chatrelay/pkg/store"
	"chatrelay/pkg/utils"
	"chatrelay/pkg/validation"
)

// RegisterMessages registers the message-log endpoints.
func RegisterMessages(r *mux.Router, conv *state.Conversation) {
	r.HandleFunc("/messages", createMessage(conv)).Methods(http.MethodPost)
	r.HandleFunc("/messages", listMessages(conv)).Methods(http.MethodGet)
}

func createMessage(conv *state.Conversation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var m models.Message
		if err := decodeStrict(r, &m); err != nil {
			writePlain(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if err := validation.ValidateMessage(m); err != nil {
			writePlain(w, http.StatusBadRequest, "Invalid message")
			return
		}

		m, err := conv.AppendMessage(m)
		if err != nil {
			var se *store.StorageError
			if errors.As(err, &se) {
				writePlain(w, http.StatusInternalServerError, "Storage Error")
				return
			}
			writePlain(w, http.StatusInternalServerError, "Server Error")
			return
		}

		logger.Info("message_accepted", "username", m.Username, "ts", m.Timestamp)
		writePlain(w, http.StatusOK, "ok")
	}
}

func listMessages(conv *state.Conversation) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		msgs := conv.Messages()
		if msgs == nil {
			msgs = []models.Message{}
		}
		_ = utils.JSONWrite(w, http.StatusOK, msgs)
	}
}
