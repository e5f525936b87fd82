package main

import (
	"context"
	"os"
	"time"

	"github.com/campushub/auth-service/internal/config"
	"github.com/campushub/auth-service/internal/users"
	"github.com/campushub/auth-service/internal/usersctl"
	"github.com/campushub/auth-service/pkg/logger"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cmd, err := usersctl.Parse(os.Args[1:], os.Stderr)
	if err != nil {
		logger.Fatalf("%v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if cfg.Users.Store == "memory" {
		logger.Fatalf("USER_STORE=memory has nothing to manage outside the server process")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	repo, closeRepo, err := users.Open(ctx, cfg)
	if err != nil {
		logger.Fatalf("failed to open user directory: %v", err)
	}
	defer closeRepo()

	svc := users.NewService(repo, cfg.Users.BcryptCost, cfg.Users.DefaultProfilePicture)
	if err := usersctl.Run(ctx, cmd, svc, os.Stdout); err != nil {
		closeRepo()
		logger.Fatalf("%s: %v", cmd.Name, err)
	}
}
