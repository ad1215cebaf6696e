package main

import (
	"fmt"

	"github.com/clssck/VeevaBro/internal/app"
)

func cmdConnect() {
	s := openApp()
	defer s.Close()

	in, err := s.app.WithStoredDefaults(s.ctx, app.SettingsInput{})
	if err != nil {
		fatal("%v", err)
	}
	connect(s, in)
}

func connect(s *session, in app.SettingsInput) {
	fmt.Println("Testing connection...")
	sess, err := s.app.TestConnection(s.ctx, in)
	if err != nil {
		s.Close()
		fatal("Connection failed: %v", err)
	}
	fmt.Printf("Connection successful (vault %s, user %s)\n", sess.VaultID, sess.UserID)
}
