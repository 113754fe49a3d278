// Command exporter is the AWS Lambda entry point for the export stage.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/lox/weatheretl/internal/app"
	"github.com/lox/weatheretl/internal/config"
	"github.com/lox/weatheretl/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg, "export")

	h, err := app.New(cfg, log).Exporter(context.Background())
	if err != nil {
		log.Error("init export handler", "err", err)
		os.Exit(1)
	}
	lambda.Start(h.Handle)
}
