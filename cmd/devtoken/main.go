// devtoken mints an access token with the local key pair for development.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"salescoach-service/internal/config"
	"salescoach-service/internal/pkg/jwt"

	"github.com/joho/godotenv"
)

func main() {
	userID := flag.String("user", "", "user id (sub)")
	orgID := flag.String("org", "", "organization id")
	roles := flag.String("roles", "", "comma separated roles")
	flag.Parse()

	if *userID == "" {
		log.Fatal("-user is required")
	}

	_ = godotenv.Load()
	cfg := config.Load()

	manager, err := jwt.LoadAndBuild(cfg.JWT)
	if err != nil {
		log.Fatalf("failed to load keys: %v", err)
	}

	var roleList []string
	if *roles != "" {
		roleList = strings.Split(*roles, ",")
	}

	token, jti, err := manager.Generator.GenerateAccessToken(*userID, *orgID, roleList)
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}
	if _, err := manager.Verifier.VerifyAccessToken(token); err != nil {
		log.Fatalf("generated token does not verify: %v", err)
	}

	log.Printf("jti=%s", jti)
	fmt.Println(token)
}
