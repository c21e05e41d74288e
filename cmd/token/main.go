// Command token mints a session bearer token for local testing against a
// running server.  The session layer issues real tokens in production.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/middleware"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/utils"
)

func main() {
	_ = godotenv.Load()

	secret := pflag.String("secret", os.Getenv("JWT_SECRET"), "HS256 signing secret (default $JWT_SECRET)")
	sub := pflag.StringP("session", "s", "", "session id to put in the sub claim")
	admin := pflag.Bool("admin", false, "issue an ADMIN token")
	ttl := pflag.Duration("ttl", 12*time.Hour, "token lifetime")
	pflag.Parse()

	if *secret == "" || strings.TrimSpace(*sub) == "" {
		fmt.Fprintln(os.Stderr, "usage: token --session <id> [--admin] [--ttl 12h]  (JWT_SECRET or --secret required)")
		os.Exit(2)
	}
	role := middleware.RoleParticipant
	if *admin {
		role = middleware.RoleAdmin
	}
	at, err := utils.NewAccessToken(*secret, strings.TrimSpace(*sub), role, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sign:", err)
		os.Exit(1)
	}
	fmt.Println(at.Token)
}
