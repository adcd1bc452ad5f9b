package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/resp"
)

// fakeStorage records presign and delete calls without talking to a bucket.
type fakeStorage struct {
	mu          sync.Mutex
	uploadKey   string
	downloadKey string
	deletedKeys []string
}

func (f *fakeStorage) PresignUpload(ctx context.Context, key, mimeType string, fileSize int64, duration time.Duration) (string, error) {
	f.uploadKey = key
	return "https://bucket.test/upload/" + key, nil
}

func (f *fakeStorage) PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error) {
	f.downloadKey = key
	return "https://bucket.test/download/" + key, nil
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedKeys = append(f.deletedKeys, key)
	return nil
}

func (f *fakeStorage) deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deletedKeys...)
}

func TestValidateAvatarFile(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		mimeType string
		fileSize int64
		wantExt  string
		wantCode int
	}{
		{"valid png", "me.png", "image/png", 1024, ".png", 0},
		{"valid jpeg alias", "me.JPG", "image/jpeg", 1024, ".jpg", 0},
		{"mixed case mime", "me.webp", "IMAGE/WEBP", 1024, ".webp", 0},
		{"zero size", "me.png", "image/png", 0, "", errs.ErrInvalidParams},
		{"oversize", "me.png", "image/png", MaxAvatarSize + 1, "", errs.ErrFileSizeTooLarge},
		{"disallowed mime", "me.svg", "image/svg+xml", 1024, "", errs.ErrFileTypeInvalid},
		{"extension mismatch", "me.png", "image/jpeg", 1024, "", errs.ErrFileTypeInvalid},
		{"no extension", "avatar", "image/png", 1024, "", errs.ErrFileTypeInvalid},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ext, customErr := validateAvatarFile(tc.fileName, tc.mimeType, tc.fileSize)
			if tc.wantCode == 0 {
				if customErr != nil {
					t.Fatalf("expected success, got %v", customErr)
				}
				if ext != tc.wantExt {
					t.Fatalf("expected ext %q, got %q", tc.wantExt, ext)
				}
				return
			}
			if customErr == nil || customErr.Code != tc.wantCode {
				t.Fatalf("expected code %d, got %v", tc.wantCode, customErr)
			}
		})
	}
}

func TestPresignAvatarRecordsKey(t *testing.T) {
	deps, st := newTestDeps(t)
	fake := &fakeStorage{}
	deps.Storage = fake
	router := Router(deps)
	ctx := context.Background()

	alice, err := st.CreateUser(ctx, "alice01", "Alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	body := `{"fileName":"portrait.png","mimeType":"image/png","fileSize":2048}`
	r := httptest.NewRequest(http.MethodPost, "/api/user/avatar/presign", bytes.NewBufferString(body))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Authorization", "Bearer "+mustToken(t, alice.ID.String(), time.Hour))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, r)

	var parsed resp.JSONResponse
	if err := json.Unmarshal(w.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, w.Body.String())
	}
	if parsed.Code != 0 {
		t.Fatalf("expected success, got code %d: %s", parsed.Code, parsed.Message)
	}

	wantKey := "avatars/" + alice.ID.String() + ".png"
	if fake.uploadKey != wantKey {
		t.Fatalf("expected presign for %q, got %q", wantKey, fake.uploadKey)
	}

	stored, err := st.GetUserByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if stored.AvatarKey != wantKey {
		t.Fatalf("avatar key not recorded, got %q", stored.AvatarKey)
	}
}

func TestAvatarDownloadRequiresStoredKey(t *testing.T) {
	deps, st := newTestDeps(t)
	fake := &fakeStorage{}
	deps.Storage = fake
	router := Router(deps)
	ctx := context.Background()

	alice, err := st.CreateUser(ctx, "alice01", "Alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	token := mustToken(t, alice.ID.String(), time.Hour)

	parsed := getWithAuth(t, router, "/api/user/avatar/download", token)
	if parsed.Code == 0 {
		t.Fatal("download without a stored avatar should fail")
	}

	if err := st.SetUserAvatar(ctx, alice.ID, "avatars/"+alice.ID.String()+".png"); err != nil {
		t.Fatalf("set avatar: %v", err)
	}

	parsed = getWithAuth(t, router, "/api/user/avatar/download", token)
	if parsed.Code != 0 {
		t.Fatalf("expected success, got code %d: %s", parsed.Code, parsed.Message)
	}
	data, _ := parsed.Data.(map[string]any)
	if data["downloadUrl"] == "" || data["downloadUrl"] == nil {
		t.Fatalf("expected a download url, got %v", parsed.Data)
	}
}

func presignAvatar(t *testing.T, router http.Handler, token, body string) resp.JSONResponse {
	t.Helper()

	r := httptest.NewRequest(http.MethodPost, "/api/user/avatar/presign", bytes.NewBufferString(body))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, r)

	var parsed resp.JSONResponse
	if err := json.Unmarshal(w.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, w.Body.String())
	}
	return parsed
}

func TestPresignAvatarDeletesStaleObject(t *testing.T) {
	deps, st := newTestDeps(t)
	fake := &fakeStorage{}
	deps.Storage = fake
	router := Router(deps)
	ctx := context.Background()

	alice, err := st.CreateUser(ctx, "alice01", "Alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	token := mustToken(t, alice.ID.String(), time.Hour)

	// First upload: no previous object, nothing to delete.
	parsed := presignAvatar(t, router, token, `{"fileName":"me.jpg","mimeType":"image/jpeg","fileSize":2048}`)
	if parsed.Code != 0 {
		t.Fatalf("expected success, got code %d: %s", parsed.Code, parsed.Message)
	}
	if got := fake.deleted(); len(got) != 0 {
		t.Fatalf("first upload must not delete anything, got %v", got)
	}

	oldKey := "avatars/" + alice.ID.String() + ".jpg"

	// Extension change: the stale object goes away.
	parsed = presignAvatar(t, router, token, `{"fileName":"me.png","mimeType":"image/png","fileSize":2048}`)
	if parsed.Code != 0 {
		t.Fatalf("expected success, got code %d: %s", parsed.Code, parsed.Message)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if got := fake.deleted(); len(got) == 1 {
			if got[0] != oldKey {
				t.Fatalf("expected delete of %q, got %v", oldKey, got)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("stale avatar object was never deleted, deletes: %v", fake.deleted())
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Re-announcing the same key must not delete the current object.
	parsed = presignAvatar(t, router, token, `{"fileName":"other.png","mimeType":"image/png","fileSize":4096}`)
	if parsed.Code != 0 {
		t.Fatalf("expected success, got code %d: %s", parsed.Code, parsed.Message)
	}
	time.Sleep(50 * time.Millisecond)
	if got := fake.deleted(); len(got) != 1 {
		t.Fatalf("same-key presign must not delete, got %v", got)
	}
}
