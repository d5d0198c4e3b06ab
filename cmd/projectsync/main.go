// Command projectsync mirrors a brand/project folder tree into the project database.
//
// Usage:
//
//	FS_SYNC_ROOT=/app/projects JWT_SECRET=... projectsync serve
//	projectsync scan --root /app/projects/tech
//	projectsync migrate
package main

import (
	"fmt"
	"os"
)

var Version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
