package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/fittrack/internal/fitctl"
)

func main() {
	app := fitctl.NewApp(os.Stdin, os.Stdout, os.Stderr, os.LookupEnv)
	if err := app.Run(context.Background(), os.Args[1:]); err != nil {
		log.Fatalf("fitctl: %v", err)
	}
}
