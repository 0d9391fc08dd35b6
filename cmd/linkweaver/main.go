package main

import (
	"os"

	"anchor.fit/linkweaver/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
