// Command devtoken issues bearer tokens for local development when the API
// runs with AUTH_PROVIDER=hmac.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gophermarket/gophermarket/internal/auth"
)

const minSecretLength = 32

type output struct {
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("devtoken", flag.ContinueOnError)
	var (
		secret  = fs.String("secret", os.Getenv("AUTH_HMAC_SECRET"), "Shared signing secret (defaults to AUTH_HMAC_SECRET)")
		email   = fs.String("email", "student@umn.edu", "Email claim for the token")
		subject = fs.String("subject", "", "Subject claim; defaults to the email")
		ttl     = fs.Duration("ttl", 24*time.Hour, "Token lifetime")
		format  = fs.String("format", "plain", "Output format: plain or json")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if len(*secret) < minSecretLength {
		return fmt.Errorf("secret must be at least %d characters", minSecretLength)
	}
	addr := strings.TrimSpace(*email)
	if addr == "" || !strings.Contains(addr, "@") {
		return fmt.Errorf("invalid email: %q", *email)
	}
	if *ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	id := auth.Identity{Email: addr, Subject: strings.TrimSpace(*subject)}
	token, err := auth.IssueHMACToken(*secret, id, *ttl)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	out := output{
		Email:     addr,
		Subject:   id.Key(),
		Token:     token,
		ExpiresAt: time.Now().Add(*ttl).UTC().Truncate(time.Second),
	}

	switch strings.ToLower(*format) {
	case "plain":
		_, err = fmt.Fprintln(stdout, out.Token)
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(out)
	default:
		return fmt.Errorf("invalid format; use plain or json")
	}
	return err
}
