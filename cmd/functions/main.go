package main // Entry point for running the Cloud Functions locally

import (
	"log"
	"os"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"

	_ "github.com/iliyamo/volunteer-slot-sync/function" // registers ping and updateSlot
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	// FUNCTION_TARGET selects a single function; unset serves both by name.
	if err := funcframework.Start(port); err != nil {
		log.Fatalf("funcframework.Start: %v", err)
	}
}
