package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

func handleForgotPassword(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: tradutor forgot-password <email>")
		os.Exit(1)
	}
	email := args[0]

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := buildApp(ctx)
	defer a.close(ctx)

	fatal(a.session.ForgotPassword(ctx, email))
	fmt.Printf("✅ Reset email requested for %s. Check your inbox.\n", email)
}

func handleResetPassword(args []string) {
	var token string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-h", "--help", "help":
			fmt.Println("Usage: tradutor reset-password <token>")
			return
		default:
			token = args[i]
		}
	}
	if token == "" {
		fatal(errors.New("usage: tradutor reset-password <token>"))
	}

	password, err := promptSecret("New password: ")
	fatal(err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := buildApp(ctx)
	defer a.close(ctx)

	fatal(a.session.ResetPassword(ctx, token, password))
	fmt.Println("✅ Password updated. Run 'tradutor login' to sign in.")
}
