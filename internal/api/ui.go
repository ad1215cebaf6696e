package api

import (
	_ "embed"
	"net/http"
)

//go:embed ui/popup.html
var popupHTML []byte

func (s *Server) handleUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(popupHTML)
}
