// Command token は読み取りAPI用のアクセストークンを発行します（開発・運用向け）。
//
//	go run ./cmd/token -user 7 -ttl 24h
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	jwtmw "stock_alerts/internal/platform/jwt"
)

func main() {
	userID := flag.Uint("user", 0, "user id to put in the sub claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load(".env")

	secret := os.Getenv(jwtmw.EnvKeyJWTSecret)
	if secret == "" || *userID == 0 {
		slog.Error("JWT_SECRET and -user are required")
		os.Exit(2)
	}

	token, err := jwtmw.NewGenerator(secret, *ttl).GenerateToken(*userID)
	if err != nil {
		slog.Error("failed to generate token", "error", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
