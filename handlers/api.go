package handlers

import (
	"chatlink/auth"
	"chatlink/chat"
	"chatlink/config"
	"chatlink/store"
)

const fallbackAvatar = "https://upload.wikimedia.org/wikipedia/commons/8/89/Portrait_Placeholder.png"

// API bundles the application state the handlers need. It is built
// once in main and passed down; there are no package-level singletons.
type API struct {
	Tree store.Tree
	Chat *chat.Service
	Auth *auth.Service
	Cfg  config.Config
}

func NewAPI(tree store.Tree, chatSvc *chat.Service, authSvc *auth.Service, cfg config.Config) *API {
	return &API{Tree: tree, Chat: chatSvc, Auth: authSvc, Cfg: cfg}
}

func (a *API) google() auth.GoogleConfig {
	return auth.GoogleConfig{
		ClientID:     a.Cfg.GoogleClientID,
		ClientSecret: a.Cfg.GoogleClientSecret,
		RedirectURL:  a.Cfg.GoogleRedirectURL,
	}
}
