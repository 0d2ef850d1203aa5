// Command staff-token mints an access token for a staff member. Accounts
// are managed outside this service; the token only carries an id and role.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/iliyamo/arena-booking/internal/config"
	"github.com/iliyamo/arena-booking/internal/utils"
)

func main() {
	userID := flag.Uint64("user", 0, "staff user id (required)")
	role := flag.String("role", utils.RoleStaff, "STAFF or ADMIN")
	ttl := flag.Duration("ttl", 0, "token lifetime (default ACCESS_TOKEN_TTL_MIN)")
	flag.Parse()

	if *userID == 0 {
		fmt.Fprintln(os.Stderr, "staff-token: -user is required")
		os.Exit(2)
	}
	r := strings.ToUpper(*role)
	if r != utils.RoleStaff && r != utils.RoleAdmin {
		fmt.Fprintf(os.Stderr, "staff-token: unknown role %q\n", *role)
		os.Exit(2)
	}

	cfg := config.Load()
	lifetime := *ttl
	if lifetime <= 0 {
		lifetime = time.Duration(cfg.AccessTTLMin) * time.Minute
	}
	tok, err := utils.NewAccessToken(cfg.JWTSecret, *userID, r, lifetime)
	if err != nil {
		fmt.Fprintln(os.Stderr, "staff-token:", err)
		os.Exit(1)
	}
	fmt.Println(tok.Token)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format(time.RFC3339))
}
