package ws

import (
	"errors"
	"net/http"
	"time"

	"github.com/assocworks/member-chat/auth"
	"github.com/assocworks/member-chat/chat"
	"github.com/assocworks/member-chat/persistence"
	"github.com/assocworks/member-chat/types"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewHandler returns the websocket endpoint. A connection attempt must
// carry a verifiable ID token (query parameters id_token and provider);
// without one the connection is rejected and never registered.
func NewHandler(router *chat.Router, verifier *auth.Verifier, store persistence.Persister, log hclog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vals := r.URL.Query()
		userId, err := verifier.Authenticate(r.Context(), vals.Get("id_token"), vals.Get("provider"))
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			log.Error("could not authenticate connection", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		user := types.User{Id: userId, Nick: userId, Tags: make(map[string]string)}
		if store != nil {
			err := store.GetUser(&user)
			if errors.Is(err, persistence.ErrNotFound) {
				user.LastOnline = time.Now().In(time.UTC)
				if err := store.StoreUser(user); err != nil {
					log.Error("could not store user", "user", userId, "error", err)
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
			} else if err != nil {
				log.Error("could not load user", "user", userId, "error", err)
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("websocket upgrade error", "error", err)
			return
		}

		client := NewClient(router, conn, &user, log)
		router.Connect(client)

		go client.WriteLoop()
		client.ReadLoop()
	}
}
