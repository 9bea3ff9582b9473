package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/marcus-qen/tradutor/internal/identity"
)

func handleWhoAmI(args []string) {
	remote := false
	for _, arg := range args {
		switch arg {
		case "--remote":
			remote = true
		case "-h", "--help", "help":
			fmt.Println("Usage: tradutor whoami [--remote]")
			return
		default:
			fmt.Fprintf(os.Stderr, "Usage: tradutor whoami [--remote]\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := buildApp(ctx)
	defer a.close(ctx)

	var user *identity.User
	if remote {
		var err error
		user, err = a.session.WhoAmI(ctx)
		fatal(err)
	} else {
		user = a.session.CurrentUser()
	}
	if user == nil {
		fatal(fmt.Errorf("no session found; run 'tradutor login'"))
	}

	fmt.Println("👤 Signed-in identity")
	fmt.Println("─────────────────────")
	fmt.Printf("Name:  %s\n", fallback(user.DisplayName, "(none)"))
	fmt.Printf("Email: %s\n", fallback(user.Email, "(none)"))
	fmt.Printf("ID:    %s\n", fallback(user.ID, "(none)"))
	fmt.Printf("Role:  %s\n", user.Role)
}

func fallback(v, d string) string {
	if v == "" {
		return d
	}
	return v
}
