package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func cmdLog() {
	limit := 20
	if len(os.Args) > 2 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil || n <= 0 {
			fatal("usage: veevabro log [n]")
		}
		limit = n
	}

	s := openApp()
	defer s.Close()

	entries, err := s.app.Activity(s.ctx, limit)
	if err != nil {
		s.Close()
		fatal("%v", err)
	}
	if len(entries) == 0 {
		fmt.Println("No activity yet.")
		return
	}
	// oldest first, like a log
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		fmt.Printf("%s  %-5s  %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04:05"), strings.ToUpper(e.Level), e.Message)
	}
}
