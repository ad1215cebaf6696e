package main

import (
	"fmt"
	"net/http"
	"os/exec"
	"runtime"
)

func cmdUI() {
	cfg := loadConfig()
	token, err := readPopupToken(cfg)
	if err != nil {
		fatal("popup server is not running, start it with 'veevabro serve'")
	}

	resp, err := apiRequest(cfg, http.MethodGet, "/status")
	if err != nil {
		fatal("cannot reach popup server at %s, is it running?", cfg.Addr)
	}
	if err := apiResult(resp, nil); err != nil {
		fatal("popup server rejected the token (%v), restart it with 'veevabro serve'", err)
	}

	url := serverURL(cfg) + "/ui#token=" + token

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	}

	if cmd != nil {
		if err := cmd.Start(); err == nil {
			fmt.Println("Opened the popup in your browser.")
			return
		}
	}

	fmt.Println("Open this URL in your browser:")
	fmt.Println()
	fmt.Println("  " + url)
	fmt.Println()
}
