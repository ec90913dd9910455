// Package main prints a signed bearer token for local development against the API.
//
//	go run ./cmd/devtoken -user <uuid> -email dev@example.com
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/teamhuddle/backend/config"
	"github.com/teamhuddle/backend/internal/auth"
)

func main() {
	userFlag := flag.String("user", "", "profile id (uuid); random when empty")
	email := flag.String("email", "dev@example.com", "email claim")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	userID := uuid.New()
	if *userFlag != "" {
		userID, err = uuid.Parse(*userFlag)
		if err != nil {
			fmt.Fprintln(os.Stderr, "invalid -user:", err)
			os.Exit(2)
		}
	}

	token, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours).Generate(userID, *email)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sign token:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
