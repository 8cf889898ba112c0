// Command puceats-tokens issues and inspects invitation tokens directly
// against the database, for operators without an admin session.
package main

import (
	"fmt"
	"os"

	"puceats-api/routes"
)

func main() {
	app := App()
	app.Version = routes.Version
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
