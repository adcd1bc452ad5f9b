package handler

import (
	"relaychat/internal/app/chat"
	"relaychat/internal/app/storage"
	"relaychat/internal/app/store"
	"relaychat/internal/configs"
)

// AppDeps bundles the collaborators every handler may need.
type AppDeps struct {
	Config   *configs.AppConfig
	Store    store.Store
	Registry *chat.Registry
	Rooms    *chat.Manager
	Storage  storage.StorageService
}
