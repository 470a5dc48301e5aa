// Package main retrieval CLI and HTTP API
//
// @title Retrieval Agent API
// @version 1.0
// @description Adaptive place retrieval for trip planning
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
