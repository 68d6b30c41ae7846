package handlers

import "net/http"

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	auth := AuthHandler{Users: deps.Users, Sessions: deps.Sessions, Limiter: deps.LoginLimiter}
	videos := VideoHandler{
		Videos:   deps.Videos,
		Catalog:  deps.Catalog,
		Sessions: deps.Sessions,
		Tokens:   deps.PlaybackTokens,
	}

	mux.HandleFunc("/health", health.Handle)
	mux.HandleFunc("/auth/signup", auth.SignUp)
	mux.HandleFunc("/auth/login", auth.Login)
	mux.HandleFunc("/auth/me", auth.Me)
	mux.HandleFunc("/auth/logout", auth.Logout)
	mux.HandleFunc("/dashboard", videos.Dashboard)
	mux.HandleFunc("/video/{id}/stream", videos.Stream)
	mux.HandleFunc("/video/{id}/embed", videos.Embed)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users          UserStore
	Videos         VideoStore
	Catalog        CatalogSelector
	Sessions       SessionManager
	PlaybackTokens PlaybackTokens
	LoginLimiter   RateLimiter
}
