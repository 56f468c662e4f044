package routes

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"

	"petlens/internal/config"
	"petlens/internal/handler"
	"petlens/internal/logger"
	"petlens/internal/middleware"
	"petlens/internal/repository"
	"petlens/internal/service"
	"petlens/internal/service/community"
)

// Services are the collaborators the HTTP layer talks to.
type Services struct {
	Accounts   *community.AccountService
	Posts      *community.PostService
	Manager    *service.Manager
	Hub        handler.ViewerHub
	Detections repository.DetectionRepository
}

// dynamicHTMLHandler serves /path as <dir>/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(dir, filepath.Clean("/"+path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers auth, feed, pet, detection, live view and log
// endpoints. Every request passes through the session middleware; mutating
// routes additionally require a session.
func SetupRoutes(svc Services, cfg *config.Config, logger *logger.Logger) http.Handler {
	router := mux.NewRouter()
	router.Use(middleware.SessionMiddleware(svc.Accounts))

	// Static files
	router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDirectory))))

	// Auth endpoints
	auth := router.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/signup", handler.SignUpHandler(svc.Accounts, logger)).Methods(http.MethodPost)
	auth.HandleFunc("/login", handler.LoginHandler(svc.Accounts, logger)).Methods(http.MethodPost)
	auth.HandleFunc("/logout", handler.LogoutHandler(svc.Accounts)).Methods(http.MethodPost)
	auth.HandleFunc("/session", handler.SessionHandler(logger)).Methods(http.MethodGet)

	// API endpoints
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/posts", handler.ListPostsHandler(svc.Posts, logger)).Methods(http.MethodGet)
	api.HandleFunc("/posts/{id}", handler.GetPostHandler(svc.Posts, logger)).Methods(http.MethodGet)
	api.HandleFunc("/posts/{id}/image", handler.PostImageHandler(svc.Posts, logger)).Methods(http.MethodGet)
	api.HandleFunc("/pet", handler.GetPetHandler(svc.Posts, logger)).Methods(http.MethodGet)
	api.HandleFunc("/pet/photo", handler.PetPhotoHandler(svc.Posts, logger)).Methods(http.MethodGet)
	api.HandleFunc("/detect", handler.DetectHandler(svc.Manager, cfg, logger)).Methods(http.MethodPost)
	api.HandleFunc("/match", handler.MatchHandler(svc.Manager, logger)).Methods(http.MethodGet)
	api.HandleFunc("/stats", handler.StatsHandler(svc.Manager, svc.Detections, logger)).Methods(http.MethodGet)
	api.HandleFunc("/view", handler.ViewWebsocketHandler(svc.Hub, svc.Manager, logger))

	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.RequireSession)
	protected.HandleFunc("/posts", handler.CreatePostHandler(svc.Posts, cfg, logger)).Methods(http.MethodPost)
	protected.HandleFunc("/posts/{id}", handler.EditPostHandler(svc.Posts, cfg, logger)).Methods(http.MethodPut)
	protected.HandleFunc("/posts/{id}", handler.DeletePostHandler(svc.Posts, logger)).Methods(http.MethodDelete)
	protected.HandleFunc("/pet", handler.RegisterPetHandler(svc.Posts, cfg, logger)).Methods(http.MethodPut)
	protected.HandleFunc("/stats", handler.ClearStatsHandler(svc.Detections, logger)).Methods(http.MethodDelete)

	// Log endpoints
	logs := router.PathPrefix("/logs").Subrouter()
	logs.Use(middleware.RequireSession)
	logs.HandleFunc("/{level}", handler.ShowLogsHandler(logger)).Methods(http.MethodGet)
	logs.HandleFunc("/{level}/clear", handler.ClearLogsHandler(logger)).Methods(http.MethodPost)

	// Automatic HTML handler mapping, for example /view -> static/view.html
	router.PathPrefix("/").HandlerFunc(dynamicHTMLHandler(cfg.StaticDirectory)).Methods(http.MethodGet)

	return router
}
