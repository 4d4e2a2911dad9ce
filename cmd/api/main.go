package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	"github.com/fedinairn08/bank-rest/internal/config"
	"github.com/fedinairn08/bank-rest/internal/handler"
	"github.com/fedinairn08/bank-rest/internal/integrations/cbr"
	"github.com/fedinairn08/bank-rest/internal/middleware"
	"github.com/fedinairn08/bank-rest/internal/repository"
	"github.com/fedinairn08/bank-rest/internal/service"
	"github.com/fedinairn08/bank-rest/internal/utils/email"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize layers
	repo := repository.NewRepository(db)
	var notifier service.Notifier
	if cfg.SMTPHost != "" {
		notifier = email.NewSender(cfg, logger)
	}
	svc := service.NewService(repo, logger, cfg, notifier)
	h := handler.NewHandler(svc, logger)
	cbrClient := cbr.NewClient(cfg, logger)

	// Setup router
	r := mux.NewRouter()
	h.RegisterPublicRoutes(r)

	// CBR key rate endpoint
	r.HandleFunc("/key-rate", func(w http.ResponseWriter, r *http.Request) {
		rate, err := cbrClient.GetKeyRate()
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to get key rate: %v", err), http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]float64{"key_rate": rate})
	}).Methods("GET")

	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	h.RegisterProtectedRoutes(authRouter)

	// Nightly sweep that blocks cards past their expiry month
	c := cron.New()
	if _, err := c.AddFunc("0 3 * * *", func() {
		if err := svc.BlockExpiredCards(); err != nil {
			logger.Errorf("Expired card sweep failed: %v", err)
		}
	}); err != nil {
		logger.Fatalf("Failed to schedule expired card sweep: %v", err)
	}
	c.Start()
	defer c.Stop()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
