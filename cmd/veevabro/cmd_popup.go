package main

import (
	"github.com/clssck/VeevaBro/internal/tui"
)

func cmdPopup() {
	s := openApp(withLogFile("popup.log"))
	defer s.Close()

	if err := tui.Run(s.ctx, s.app); err != nil {
		s.Close()
		fatal("popup: %v", err)
	}
}
