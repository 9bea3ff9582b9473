package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

func handleLogin(args []string) {
	var email, password string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--password":
			i++
			if i >= len(args) {
				fatal(errors.New("--password requires a value"))
			}
			password = args[i]
		case "-h", "--help", "help":
			fmt.Println("Usage: tradutor login <email> [--password X]")
			return
		default:
			if strings.HasPrefix(args[i], "-") {
				fatal(fmt.Errorf("unknown login option: %s", args[i]))
			}
			email = args[i]
		}
	}
	if email == "" {
		fatal(errors.New("usage: tradutor login <email> [--password X]"))
	}
	if password == "" {
		password = envOr("TRADUTOR_PASSWORD", "")
	}
	if password == "" {
		var err error
		password, err = promptSecret(fmt.Sprintf("Password for %s: ", email))
		fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	a := buildApp(ctx)
	defer a.close(ctx)

	fatal(a.session.Login(ctx, email, password))

	fmt.Printf("✅ Signed in as %s\n", email)
	if user := a.session.CurrentUser(); user != nil && user.Role == "admin" {
		fmt.Println("   Role: admin")
	}
}

// promptSecret reads one line from stdin. Interactive callers should prefer
// TRADUTOR_PASSWORD or --password in scripts; the prompt echoes.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	secret := strings.TrimRight(line, "\r\n")
	if secret == "" {
		return "", errors.New("empty input")
	}
	return secret, nil
}
