package main

import (
	"context"
	"fmt"
	"os"
)

func handleLogout(args []string) {
	if len(args) > 0 {
		fmt.Fprintln(os.Stderr, "Usage: tradutor logout")
		os.Exit(1)
	}

	ctx := context.Background()
	a := buildApp(ctx)
	defer a.close(ctx)

	if _, ok := a.tokens.Get(); !ok {
		fmt.Println("ℹ️  No cached session found.")
		return
	}

	a.session.Logout()
	fmt.Printf("✅ Logged out. Removed session: %s\n", a.cfg.ResolvedTokenPath())
}
