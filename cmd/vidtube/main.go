package main

import (
	"context"
	"log"
	"os"

	"github.com/vidtube/client/internal/app"
	"github.com/vidtube/client/internal/apperrors"
)

func main() {
	ctx := context.Background()
	if err := app.Run(ctx, os.Args[1:]); err != nil {
		log.SetFlags(0)
		log.Fatal(apperrors.Message(err))
	}
}
