package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

func handleRegister(args []string) {
	var email, name, password string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--name":
			i++
			if i >= len(args) {
				fatal(errors.New("--name requires a value"))
			}
			name = args[i]
		case "--password":
			i++
			if i >= len(args) {
				fatal(errors.New("--password requires a value"))
			}
			password = args[i]
		case "-h", "--help", "help":
			fmt.Println("Usage: tradutor register <email> [--name X] [--password X]")
			return
		default:
			if strings.HasPrefix(args[i], "-") {
				fatal(fmt.Errorf("unknown register option: %s", args[i]))
			}
			email = args[i]
		}
	}
	if email == "" {
		fatal(errors.New("usage: tradutor register <email> [--name X] [--password X]"))
	}
	if password == "" {
		var err error
		password, err = promptSecret("Choose a password: ")
		fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	a := buildApp(ctx)
	defer a.close(ctx)

	fatal(a.session.Register(ctx, name, email, password))

	if a.session.CurrentUser() != nil {
		fmt.Printf("✅ Account created and signed in as %s\n", email)
		return
	}
	fmt.Printf("✅ Account created for %s. Check your email to activate it, then run 'tradutor login'.\n", email)
}
