package main

import (
	"fmt"
	"os"
)

func cmdGenerate() {
	args := os.Args[2:]
	out, _ := argValue(args, "-o")

	if out == "-" {
		s := openApp()
		defer s.Close()
		doc, err := s.app.BuildCSV(s.ctx)
		if err != nil {
			s.Close()
			fatal("%v", err)
		}
		os.Stdout.Write(doc.Content)
		fmt.Println()
		return
	}

	var opts []openOption
	if out != "" {
		opts = append(opts, withExportDir(out))
	}
	s := openApp(opts...)
	defer s.Close()

	export, err := s.app.GenerateCSV(s.ctx)
	if err != nil {
		s.Close()
		fatal("%v", err)
	}
	fmt.Printf("CSV file generated: %s (%d rows)\n", export.Document.Filename, export.Document.Rows)
	if export.Location != "" {
		fmt.Printf("Saved to %s\n", export.Location)
	}
}
