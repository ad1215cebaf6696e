package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "settings":
		cmdSettings()
	case "connect":
		cmdConnect()
	case "status":
		cmdStatus()
	case "catalog":
		cmdCatalog()
	case "form":
		cmdForm()
	case "generate":
		cmdGenerate()
	case "upload":
		cmdUpload()
	case "log":
		cmdLog()
	case "serve":
		cmdServe()
	case "ui":
		cmdUI()
	case "popup":
		cmdPopup()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: veevabro <command> [args]

Commands:
  settings [show]       Show the stored Vault settings
  settings set [--url <url>] [--version <v>] [--username <name>] [--password-stdin] [--test]
                        Save Vault settings (prompts for the password)
  connect               Test the connection with the stored settings
  status                Show session and catalog status
  catalog [--json]      List object types and lifecycle states
  form [show]           Show the saved form
  form object <type>    Select the object type
  form lifecycle <state>  Select the lifecycle state ("" clears it)
  form ids <id,id,...>  Set the object ids
  form reset            Clear the saved form
  generate [-o <dir>|-] Generate the CSV into the export dir (- prints it)
  upload                Upload the CSV to file staging and load it
  log [n]               Show the last n activity entries (default 20)
  serve                 Run the popup server in the foreground
  ui                    Open the popup in your browser
  popup                 Open the popup in the terminal

Environment:
  VEEVABRO_DIR, VEEVABRO_ADDR, VEEVABRO_CATALOG, VEEVABRO_ID_RULE,
  VEEVABRO_HTTP_TIMEOUT_SEC, VEEVABRO_STAGING_DIR, VEEVABRO_EXPORT_DIR,
  VEEVABRO_LOG_LEVEL, VEEVABRO_ARCHIVE_*`)
}
