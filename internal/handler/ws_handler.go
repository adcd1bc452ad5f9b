/*
Package handler provides the HTTP handlers and routing for the relay server.

This file contains the WebSocket handshake handler: it upgrades the connection,
runs the token authentication sequence, and hands the connection to the relay's
per-connection pumps.
*/
package handler

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"relaychat/internal/app/chat"
	"relaychat/internal/app/store"
	"relaychat/internal/pkg/auth/jwt"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/limiter"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/resp"
)

// wsCloseWriteWait bounds how long a handshake-failure close frame may take.
const wsCloseWriteWait = 5 * time.Second

// closeWithReason sends a close frame with the given code and reason, then
// drops the connection. The reason is truncated to fit a close frame's
// 123-byte payload limit.
func closeWithReason(conn *websocket.Conn, code int, reason string) {
	if len(reason) > 120 {
		reason = reason[:120]
	}

	deadline := time.Now().Add(wsCloseWriteWait)
	conn.SetWriteDeadline(deadline)
	conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	conn.Close()
}

// HandleWebSocket processes relay connection requests.
//
// The handshake sequence after the upgrade: extract the token from the `token`
// query parameter, verify it, and resolve the embedded identity against the
// record store. Any failure closes the connection immediately: policy
// violation (1008) for missing/invalid tokens and unknown identities, internal
// error (1011) for a storage failure during resolution. The explicit close
// codes let clients branch on the failure class.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		token := r.URL.Query().Get("token")

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		if token == "" {
			closeWithReason(conn, websocket.ClosePolicyViolation, "no token provided")
			return
		}

		payload, err := jwt.ParseToken(token, deps.Config.JWTSecret)
		if err != nil {
			closeWithReason(conn, websocket.ClosePolicyViolation, fmt.Sprintf("invalid token: %v", err))
			return
		}

		userID, err := uuid.Parse(payload.ID)
		if err != nil {
			closeWithReason(conn, websocket.ClosePolicyViolation, "invalid token: malformed identity")
			return
		}

		user, err := deps.Store.GetUserByID(r.Context(), userID)
		if errors.Is(err, store.ErrNotFound) {
			closeWithReason(conn, websocket.ClosePolicyViolation, "user not found")
			return
		}
		if err != nil {
			logx.Error(err, "Storage failure while resolving relay identity", "user_id", payload.ID)
			closeWithReason(conn, websocket.CloseInternalServerErr, "storage failure during authentication")
			return
		}

		client := chat.NewClient(conn, user, deps.Registry, deps.Rooms, deps.Store)

		logx.Info("Relay connection authenticated", "user_id", user.ID.String())

		go client.WritePump()

		client.ReadPump()
	}
}
