package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"chat-gateway/internal/auth"
	"chat-gateway/internal/config"
	"chat-gateway/internal/database"
	"chat-gateway/internal/gateway"
	"chat-gateway/internal/handlers"
	"chat-gateway/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize user store
	store, err := database.NewPostgresStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	defer store.Close()

	// Initialize services
	authService := auth.NewService(store, cfg)

	// Initialize gateway core
	gw := gateway.New(authService, gateway.LoggingHooks())

	// Initialize handlers
	authHandlers := handlers.NewAuthHandlers(authService)
	wsHandlers := handlers.NewWebSocketHandlers(gw)

	// Setup routes
	mux := http.NewServeMux()
	setupRoutes(mux, authHandlers, wsHandlers)

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      corsMiddleware(cfg.Server.CORSOrigins, mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	logger.Info("🚀 Server started on http://localhost%s", cfg.Server.Port)
	logger.Info("📡 WebSocket endpoint: ws://localhost%s/ws", cfg.Server.Port)
	printAPIEndpoints()

	go func() {
		var err error
		if cfg.Server.TLSCertPath != "" && cfg.Server.TLSKeyPath != "" {
			logger.Info("🔒 TLS enabled")
			err = server.ListenAndServeTLS(cfg.Server.TLSCertPath, cfg.Server.TLSKeyPath)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Server shutting down...")
}

func setupRoutes(mux *http.ServeMux, authHandlers *handlers.AuthHandlers, wsHandlers *handlers.WebSocketHandlers) {
	// Auth routes
	mux.HandleFunc("/login", authHandlers.Login)
	mux.HandleFunc("/register", authHandlers.Register)
	mux.HandleFunc("/me", authHandlers.Me)

	// Health check
	mux.HandleFunc("/health", authHandlers.Health)

	// WebSocket route
	mux.HandleFunc("/ws", wsHandlers.HandleWebSocket)
}

func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowAll := len(origins) == 1 && origins[0] == "*"

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case allowAll:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && contains(origins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}

func printAPIEndpoints() {
	logger.Info("🔗 API endpoints:")
	logger.Info("   POST /login")
	logger.Info("   POST /register")
	logger.Info("   GET  /me")
	logger.Info("   GET  /health")
	logger.Info("   GET  /ws (WebSocket)")
}
