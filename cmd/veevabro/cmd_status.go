package main

import (
	"fmt"
)

func cmdStatus() {
	s := openApp()
	defer s.Close()

	st, err := s.app.Status(s.ctx)
	if err != nil {
		fatal("%v", err)
	}

	if st.HasSession {
		fmt.Printf("Session:  active (user %s)\n", st.UserID)
	} else {
		fmt.Println("Session:  none, run 'veevabro connect'")
	}
	if st.VaultURL != "" {
		fmt.Printf("Vault:    %s (%s) as %s\n", st.VaultURL, st.APIVersion, st.Username)
	} else {
		fmt.Println("Vault:    not configured, run 'veevabro settings set'")
	}
	fmt.Printf("Catalog:  %s (%d object types)\n", st.CatalogSource, st.CatalogObjects)
	if st.CatalogError != "" {
		fmt.Printf("          error: %s\n", st.CatalogError)
	}
	if err := s.db.Ping(s.ctx); err != nil {
		fmt.Printf("Database: %s (error: %v)\n", s.cfg.DBPath(), err)
	} else {
		fmt.Printf("Database: %s\n", s.cfg.DBPath())
	}
	if _, err := readPopupToken(s.cfg); err == nil {
		fmt.Printf("Popup:    %s/ui\n", serverURL(s.cfg))
	}
}
