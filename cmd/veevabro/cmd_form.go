package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/clssck/VeevaBro/internal/form"
)

func cmdForm() {
	sub := "show"
	var args []string
	if len(os.Args) > 2 {
		sub, args = os.Args[2], os.Args[3:]
	}

	s := openApp()
	defer s.Close()
	ctl := s.app.Form()

	var (
		view form.View
		err  error
	)
	switch sub {
	case "show":
		view = ctl.View()
	case "object":
		if len(args) != 1 {
			fatal("usage: veevabro form object <type>")
		}
		value := args[0]
		if v, ok := ctl.Catalog().ResolveObject(value); ok {
			value = v
		}
		view, err = ctl.SelectObjectType(s.ctx, value)
	case "lifecycle":
		if len(args) != 1 {
			fatal("usage: veevabro form lifecycle <state>")
		}
		value := args[0]
		if v, ok := ctl.Catalog().ResolveState(ctl.State().ObjectType, value); ok {
			value = v
		}
		view, err = ctl.SelectLifecycle(s.ctx, value)
	case "ids":
		view, err = ctl.SetObjectIDs(s.ctx, strings.Join(args, " "))
	case "reset":
		view, err = ctl.Reset(s.ctx)
		if err == nil {
			fmt.Println("Form reset and saved data cleared")
		}
	default:
		fatal("usage: veevabro form [show|object|lifecycle|ids|reset]")
	}
	if err != nil {
		s.Close()
		fatal("%v", err)
	}
	printForm(view)
}

func printForm(v form.View) {
	lifecycle := "(none)"
	for _, st := range v.States {
		if st.Value == v.Lifecycle {
			lifecycle = st.Value + " (" + st.Label + ")"
		}
	}
	ids := v.ObjectIDs
	if ids == "" {
		ids = "(none)"
	}
	fmt.Printf("Object type:  %s\n", v.ObjectType)
	fmt.Printf("Lifecycle:    %s\n", lifecycle)
	fmt.Printf("Object IDs:   %s\n", ids)
}
