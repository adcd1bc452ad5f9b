/*
Package handler provides HTTP handler functions for avatar upload and download URLs.
*/
package handler

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/req"
	"relaychat/internal/pkg/resp"
)

const (
	// MaxAvatarSizeMB is the maximum allowed avatar file size in megabytes.
	MaxAvatarSizeMB = 5

	// MaxAvatarSize is the maximum allowed avatar file size in bytes.
	MaxAvatarSize = MaxAvatarSizeMB * 1024 * 1024

	// presignedURLDuration is how long a generated upload or download URL stays valid.
	presignedURLDuration = 5 * time.Minute
)

// allowedAvatarMIMETypes is the set of permitted avatar MIME types.
var allowedAvatarMIMETypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// extToMIME maps file extensions to their corresponding MIME types.
var extToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// validateAvatarFile checks the file name, MIME type, and size, and returns the
// normalized extension on success.
func validateAvatarFile(fileName, mimeType string, fileSize int64) (string, *errs.CustomError) {
	if fileSize <= 0 {
		return "", errs.NewError(errs.ErrInvalidParams)
	}
	if fileSize > MaxAvatarSize {
		return "", errs.NewError(errs.ErrFileSizeTooLarge)
	}

	lowerMimeType := strings.ToLower(mimeType)
	if _, ok := allowedAvatarMIMETypes[lowerMimeType]; !ok {
		return "", errs.NewError(errs.ErrFileTypeInvalid)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	expectedMIME, ok := extToMIME[ext]
	if !ok || expectedMIME != lowerMimeType {
		return "", errs.NewError(errs.ErrFileTypeInvalid)
	}

	return ext, nil
}

type PresignAvatarInput struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// HandlePresignAvatarURL validates the announced avatar file and returns a
// presigned upload URL. The object key is recorded on the user before the URL
// is handed out, so the avatar is resolvable as soon as the upload completes.
func HandlePresignAvatarURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := authedUserID(w, r)
		if !ok {
			return
		}

		var input PresignAvatarInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		ext, customErr := validateAvatarFile(input.FileName, input.MimeType, input.FileSize)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		key := fmt.Sprintf("avatars/%s%s", userID.String(), ext)

		current, err := deps.Store.GetUserByID(r.Context(), userID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			return
		}
		oldKey := current.AvatarKey

		uploadURL, err := deps.Storage.PresignUpload(r.Context(), key, strings.ToLower(input.MimeType), input.FileSize, presignedURLDuration)
		if err != nil {
			logx.Error(err, "failed to presign avatar upload", "user_id", userID.String())
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if err := deps.Store.SetUserAvatar(r.Context(), userID, key); err != nil {
			logx.Error(err, "failed to record avatar key", "user_id", userID.String())
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed))
			return
		}

		// A changed extension leaves the previous object behind; remove it.
		if oldKey != "" && oldKey != key {
			go func(k string) {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := deps.Storage.Delete(ctx, k); err != nil {
					logx.Error(err, "failed to delete stale avatar object", "key", k)
				}
			}(oldKey)
		}

		resp.RespondSuccess(w, r, map[string]any{
			"uploadUrl": uploadURL,
			"key":       key,
		})
	}
}

// HandleAvatarDownloadURL returns a presigned download URL for the
// authenticated user's stored avatar.
func HandleAvatarDownloadURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := authedUserID(w, r)
		if !ok {
			return
		}

		user, err := deps.Store.GetUserByID(r.Context(), userID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))
			return
		}

		if user.AvatarKey == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		downloadURL, err := deps.Storage.PresignDownload(r.Context(), user.AvatarKey, presignedURLDuration)
		if err != nil {
			logx.Error(err, "failed to presign avatar download", "user_id", userID.String())
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"downloadUrl": downloadURL,
		})
	}
}
