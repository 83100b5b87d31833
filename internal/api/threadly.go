package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/threadly-chat/threadly/internal/config"
	"github.com/threadly-chat/threadly/internal/database"
	"github.com/threadly-chat/threadly/internal/server"
)

type ThreadlyApp struct {
	log            *log.Logger
	db             database.ThreadlyRepository
	mux            *http.Server
	cs             *server.ChatServer
	signingKey     []byte
	allowedOrigins []string
}

func NewThreadlyApp(mux *http.ServeMux, logger *log.Logger, cs *server.ChatServer, db database.ThreadlyRepository, cfg *config.Config) *ThreadlyApp {
	s := &ThreadlyApp{
		log:            logger,
		db:             db,
		cs:             cs,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("POST /register", s.register)
	mux.HandleFunc("POST /login", s.login)
	mux.HandleFunc("GET /logout", s.authMiddleware(s.logout))
	mux.HandleFunc("GET /session", s.authMiddleware(s.session))
	mux.HandleFunc("GET /users", s.listUsers)
	mux.HandleFunc("POST /search", s.searchUsers)
	mux.HandleFunc("POST /connection-request", s.createConnectionRequest)
	mux.HandleFunc("POST /pending-connection-requests", s.pendingConnectionRequests)
	mux.HandleFunc("POST /action-request", s.actionRequest)
	mux.HandleFunc("POST /active-connections", s.activeConnections)
	mux.HandleFunc("GET /health", s.healthCheck)
	// socket connections are deliberately unauthenticated; knowing the room
	// id is the only admission requirement
	mux.HandleFunc("GET /ws", s.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *ThreadlyApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *ThreadlyApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
