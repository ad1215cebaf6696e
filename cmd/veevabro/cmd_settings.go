package main

import (
	"fmt"
	"os"

	"github.com/clssck/VeevaBro/internal/app"
)

func cmdSettings() {
	sub := "show"
	if len(os.Args) > 2 {
		sub = os.Args[2]
	}
	switch sub {
	case "show":
		settingsShow()
	case "set":
		settingsSet(os.Args[3:])
	default:
		fatal("usage: veevabro settings [show|set]")
	}
}

func settingsShow() {
	s := openApp()
	defer s.Close()

	st, err := s.app.Settings(s.ctx)
	if err != nil {
		fatal("%v", err)
	}
	password := "(not set)"
	if st.Password != "" {
		password = "********"
	}
	session := "none"
	if st.HasSession() {
		session = "active (user " + st.UserID + ")"
	} else if st.SessionID != "" {
		session = "issued for " + st.SessionVaultURL + ", not active"
	}
	fmt.Printf("Vault URL:    %s\n", st.VaultURL)
	fmt.Printf("API version:  %s\n", st.APIVersion)
	fmt.Printf("Username:     %s\n", st.Username)
	fmt.Printf("Password:     %s\n", password)
	fmt.Printf("Session:      %s\n", session)
}

func settingsSet(args []string) {
	s := openApp()
	defer s.Close()

	var in app.SettingsInput
	in.VaultURL, _ = argValue(args, "--url")
	in.APIVersion, _ = argValue(args, "--version")
	in.Username, _ = argValue(args, "--username")

	if hasFlag(args, "--password-stdin") {
		in.Password = readLine(os.Stdin)
	} else {
		pw, err := promptPassword("Vault password (blank keeps the stored one): ")
		if err != nil {
			fatal("reading password: %v", err)
		}
		in.Password = pw
	}

	in, err := s.app.WithStoredDefaults(s.ctx, in)
	if err != nil {
		fatal("%v", err)
	}
	saved, err := s.app.SaveSettings(s.ctx, in)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println("Settings saved successfully")
	fmt.Printf("  %s (%s) as %s\n", saved.VaultURL, saved.APIVersion, saved.Username)

	if hasFlag(args, "--test") {
		connect(s, in)
	}
}
