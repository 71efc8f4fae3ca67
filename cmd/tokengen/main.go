// Command tokengen issues a signed JWT for manual testing against a
// running relay. The secret comes from the same JWT_SECRET the server
// reads, so a generated token is directly usable as ?token=...
package main

import (
	"chat-relay/auth"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gookit/color"
	"github.com/joho/godotenv"
)

func main() {
	username := flag.String("username", "", "identity claim to embed in the token")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *username == "" {
		fmt.Fprintln(os.Stderr, "usage: tokengen -username <name> [-ttl <duration>]")
		os.Exit(2)
	}

	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		color.Red.Println("JWT_SECRET is not set")
		os.Exit(1)
	}

	token, err := auth.GenerateToken([]byte(secret), *username, *ttl)
	if err != nil {
		color.Red.Printf("token generation failed: %v\n", err)
		os.Exit(1)
	}

	color.Green.Printf("Token for '%s' (valid %s):\n", *username, *ttl)
	fmt.Println(token)
}
