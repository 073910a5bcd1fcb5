package main

import (
	"log"

	"campuslink/internal/db"
	"campuslink/internal/services"

	"github.com/joho/godotenv"
)

// Offline repair pass for the derived counters. The online paths keep
// upvote_count/reply_count in lockstep with the voter and reply sets; this
// binary recomputes them from scratch after a restore or a manual data fix.
func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	db.Init()

	result, err := services.Reconcile(db.DB)
	if err != nil {
		log.Fatalf("Reconcile failed: %v", err)
	}
	log.Printf("Reconcile finished: %d thread upvote counts, %d reply upvote counts, %d reply counts repaired",
		result.ThreadUpvotes, result.ReplyUpvotes, result.ReplyCounts)
}
