package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/session/domain"
)

// errNotSignedIn is returned by commands that need a valid session.
var errNotSignedIn = errors.New("not signed in; run `singlebrief login` first")

func runLogin(ctx context.Context, args []string) error {
	fs, profile := newFlagSet("login")
	email := fs.StringP("email", "e", "", "account email")
	password := fs.StringP("password", "p", "", "account password (prompted when omitted; SINGLEBRIEF_PASSWORD also works)")
	remember := fs.Bool("remember-me", true, "ask the service for a long-lived refresh token")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(ctx, appOptions{profile: *profile})
	if err != nil {
		return err
	}
	defer a.close()

	in := bufio.NewReader(os.Stdin)
	if *email == "" {
		*email = prompt(in, "Email: ")
	}
	pw := resolvePassword(in, *password)

	s, err := a.session.Login(ctx, *email, pw, *remember)
	if err != nil {
		return err
	}
	printSession(s)
	return nil
}

func runRegister(ctx context.Context, args []string) error {
	fs, profile := newFlagSet("register")
	email := fs.StringP("email", "e", "", "account email")
	password := fs.StringP("password", "p", "", "account password (prompted when omitted; SINGLEBRIEF_PASSWORD also works)")
	name := fs.StringP("name", "n", "", "your full name")
	org := fs.String("org", "", "create an organization with this name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(ctx, appOptions{profile: *profile})
	if err != nil {
		return err
	}
	defer a.close()

	in := bufio.NewReader(os.Stdin)
	if *email == "" {
		*email = prompt(in, "Email: ")
	}
	if *name == "" {
		*name = prompt(in, "Full name: ")
	}
	pw := resolvePassword(in, *password)

	s, err := a.session.Register(ctx, *email, pw, *name, *org)
	if err != nil {
		return err
	}
	printSession(s)
	return nil
}

func runLogout(ctx context.Context, args []string) error {
	fs, profile := newFlagSet("logout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, err := newApp(ctx, appOptions{profile: *profile})
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.session.Restore(ctx); err != nil {
		return err
	}
	if !a.session.Snapshot().HasCredentials() {
		fmt.Println("Not signed in.")
		return nil
	}
	a.session.Logout(ctx)
	fmt.Println("Signed out.")
	return nil
}

func runWhoami(ctx context.Context, args []string) error {
	fs, profile := newFlagSet("whoami")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, err := newApp(ctx, appOptions{profile: *profile})
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.session.Restore(ctx); err != nil {
		return err
	}
	s := a.session.Snapshot()
	if !s.IsAuthenticated() {
		return errNotSignedIn
	}
	printSession(s)
	return nil
}

func runRefresh(ctx context.Context, args []string) error {
	fs, profile := newFlagSet("refresh")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, err := newApp(ctx, appOptions{profile: *profile})
	if err != nil {
		return err
	}
	defer a.close()

	// Restore validates the stored pair and renews it once it has passed its refresh point.
	if err := a.session.Restore(ctx); err != nil {
		return err
	}
	s := a.session.Snapshot()
	if !s.IsAuthenticated() {
		return errNotSignedIn
	}
	fmt.Printf("Session valid; next refresh in %s.\n", a.session.RefreshInterval(s.Tokens).Round(time.Second))
	return nil
}

func runWatch(ctx context.Context, args []string) error {
	fs, profile := newFlagSet("watch")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a, err := newApp(ctx, appOptions{profile: *profile})
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.session.Restore(ctx); err != nil {
		return err
	}
	if !a.session.IsAuthenticated() {
		return errNotSignedIn
	}

	unsubscribe := a.session.Subscribe(func(s *domain.Session) {
		if s.IsLoading {
			return
		}
		switch {
		case s.IsAuthenticated():
			fmt.Printf("%s  session valid\n", s.ValidatedAt.Local().Format("15:04:05"))
		case s.Status == domain.StatusUnauthenticated:
			fmt.Println("session ended; sign in again")
		}
	})
	defer unsubscribe()

	fmt.Println("Keeping the session fresh; press Ctrl+C to stop.")
	a.session.Start(ctx)
	<-ctx.Done()
	return nil
}

func prompt(in *bufio.Reader, label string) string {
	fmt.Fprint(os.Stderr, label)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

func resolvePassword(in *bufio.Reader, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("SINGLEBRIEF_PASSWORD"); env != "" {
		return env
	}
	return prompt(in, "Password: ")
}

func printSession(s *domain.Session) {
	if s == nil || s.User == nil {
		fmt.Println("Not signed in.")
		return
	}
	fmt.Printf("Signed in as %s <%s>", s.User.FullName, s.User.Email)
	if s.User.Role != "" {
		fmt.Printf(" (%s)", s.User.Role)
	}
	fmt.Println()
	if s.Organization != nil {
		fmt.Printf("Organization: %s\n", s.Organization.Name)
	}
}
