/*
Package handler provides HTTP handler functions for user authentication and management.
*/
package handler

import (
	"errors"
	"net/http"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"relaychat/internal/app/store"
	"relaychat/internal/pkg/auth/jwt"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/randx"
	"relaychat/internal/pkg/req"
	"relaychat/internal/pkg/resp"
)

var usernameRegex = regexp.MustCompile(`^[a-z0-9_]{4,20}$`)

func validPassword(password string) bool {
	passwordLen := utf8.RuneCountInString(password)
	return passwordLen >= 6 && passwordLen <= 50
}

func userResponse(u store.User) map[string]any {
	return map[string]any{
		"id":        u.ID.String(),
		"username":  u.Username,
		"name":      u.Name,
		"createdAt": u.CreatedAt.Format(time.RFC3339),
	}
}

type SignupInput struct {
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password"`
}

// HandleSignup creates a new user account. A blank display name is replaced by
// a generated one. On success an identity token is issued immediately so the
// client can connect to the relay without a second round trip.
func HandleSignup(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input SignupInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if !usernameRegex.MatchString(input.Username) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidUsername))
			return
		}

		if !validPassword(input.Password) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidPassword))
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		name := input.Name
		if name == "" {
			name, err = randx.DisplayName()
			if err != nil {
				name = "User_X"
			}
		}

		user, err := deps.Store.CreateUser(r.Context(), input.Username, name, string(hashedPassword))
		if err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				logx.Warn("signup conflict: username already exists", "username", input.Username)
				resp.RespondError(w, r, errs.NewError(errs.ErrUserAlreadyExists))
				return
			}

			logx.Error(err, "failed to create user in storage")
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed))
			return
		}

		// Every fresh account starts with a joinable room of its own.
		if _, err := deps.Rooms.CreateRoom(r.Context(), "", user); err != nil {
			logx.Error(err, "failed to create starter room", "user_id", user.ID.String())
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed))
			return
		}

		payload := &jwt.Payload{
			ID:   user.ID.String(),
			Role: "user",
		}

		tokenString, err := jwt.GenerateToken(payload, deps.Config.JWTSecret, jwt.UserIdentityExpiration)
		if err != nil {
			logx.Error(err, "failed to generate token after signup")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"token": tokenString,
			"user":  userResponse(user),
		})
	}
}

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin verifies user credentials and issues an identity token.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input LoginInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		user, err := deps.Store.GetUserByUsername(r.Context(), input.Username)
		if err != nil {
			logx.Warn("login: user fetch failed", "username", input.Username, "error", err)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
			logx.Warn("login: password mismatch", "username", input.Username)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		payload := &jwt.Payload{
			ID:   user.ID.String(),
			Role: "user",
		}

		token, err := jwt.GenerateToken(payload, deps.Config.JWTSecret, jwt.UserIdentityExpiration)
		if err != nil {
			logx.Error(err, "login: jwt generation failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"token": token,
			"user":  userResponse(user),
		})
	}
}

type VerifyTokenInput struct {
	Token string `json:"token"`
}

// HandleVerifyToken reports whether a token is currently valid. Clients use it
// to decide between restoring a session and sending the user back to login.
func HandleVerifyToken(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input VerifyTokenInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if _, err := jwt.ParseToken(input.Token, deps.Config.JWTSecret); err != nil {
			resp.RespondSuccess(w, r, map[string]any{"valid": false})
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"valid": true})
	}
}

// authedUserID resolves the authenticated user's UUID from the request, or
// writes an unauthorized response and reports false.
func authedUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	identity := jwt.GetPayloadFromContext(r)
	if identity == nil {
		resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
		return uuid.UUID{}, false
	}

	userID, err := uuid.Parse(identity.ID)
	if err != nil {
		resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
		return uuid.UUID{}, false
	}

	return userID, true
}

type UpdateProfileInput struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// HandleUpdateProfile renames the authenticated user and resets their password.
func HandleUpdateProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := authedUserID(w, r)
		if !ok {
			return
		}

		var input UpdateProfileInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if !validPassword(input.Password) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidPassword))
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		user, err := deps.Store.UpdateUser(r.Context(), userID, input.Name, string(hashedPassword))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
				return
			}

			logx.Error(err, "failed to update user profile", "user_id", userID.String())
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"user": userResponse(user),
		})
	}
}
