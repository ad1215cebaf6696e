package main

import (
	"encoding/json"
	"fmt"
	"os"
)

func cmdCatalog() {
	s := openApp()
	defer s.Close()

	cat := s.app.Form().Catalog()
	if hasFlag(os.Args[2:], "--json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(map[string]any{"objects": cat.Objects()})
		return
	}

	fmt.Printf("Catalog: %s\n\n", cat.Source())
	if cat.Len() == 0 {
		fmt.Println("(no object types)")
		return
	}
	for _, obj := range cat.Objects() {
		fmt.Printf("%s (%s)\n", obj.Value, obj.Label)
		for _, st := range obj.States {
			fmt.Printf("  %-30s %s\n", st.Value, st.Label)
		}
		fmt.Println()
	}
}
