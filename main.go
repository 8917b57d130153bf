package main

import (
	"context"
	"net/http"

	"oldb/config"
	"oldb/config/database"
	"oldb/internal/user"
	"oldb/migrations"
	"oldb/pkg/logger"
	"oldb/router"
	"oldb/socket"
)

func main() {
	logger.Init()
	defer logger.Log.Sync()

	cfg := config.Load()

	db := database.Connect(cfg.DSN())
	defer db.Close()

	if err := migrations.Run(context.Background(), db); err != nil {
		logger.Sugar.Fatalf("Failed to run migrations: %v", err)
	}

	userService := user.NewService(user.NewRepository(db), cfg.JWTSecret)
	if err := userService.SeedAdmin(cfg.AdminEmail, cfg.AdminPass); err != nil {
		logger.Sugar.Fatalf("Failed to seed admin user: %v", err)
	}

	hub := socket.NewHub()
	go hub.Run()

	logger.Sugar.Infof("Listening on %s", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, router.Setup(cfg, db, hub)); err != nil {
		logger.Sugar.Fatalf("Server stopped: %v", err)
	}
}
