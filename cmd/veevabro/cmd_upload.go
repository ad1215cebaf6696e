package main

import (
	"fmt"
)

func cmdUpload() {
	s := openApp()
	defer s.Close()

	fmt.Println("Uploading...")
	res, err := s.app.UploadAndLoad(s.ctx)
	if err != nil {
		s.Close()
		fatal("%v", err)
	}
	fmt.Printf("CSV uploaded to %s\n", res.StagedPath)
	fmt.Printf("CSV uploaded and loaded successfully (%d rows)\n", res.Rows)
	for _, t := range res.Tasks {
		fmt.Printf("  job %s task %s\n", t.JobID, t.TaskID)
	}
}
