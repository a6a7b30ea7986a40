package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mmdatafocus/posting_backend/config"
	"github.com/mmdatafocus/posting_backend/models"
	"gorm.io/gorm"
)

// outbox-replay shows the outcome event of one posting and, with -apply, requeues it when its
// publication FAILED or went DEAD. The reservation itself is never touched.
//
// Example:
//
//	go run ./cmd/outbox-replay/ -batch=1 -sequence=42 -apply
func main() {
	batch := flag.String("batch", "", "Required: batch number")
	sequence := flag.String("sequence", "", "Required: sequence id")
	apply := flag.Bool("apply", false, "Requeue FAILED/DEAD events (default: show status only)")
	flag.Parse()

	key, err := models.NormalizeKey(*batch, *sequence)
	if err != nil {
		fmt.Fprintln(os.Stderr, "--batch and --sequence:", err)
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var status *models.OutboxStatus
	if *apply {
		status, err = models.ReplayOutbox(ctx, db, key)
	} else {
		status, err = models.GetOutboxStatus(ctx, db, key)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fmt.Fprintf(os.Stderr, "no matching outbox event for %s\n", key)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "outbox:", err)
		os.Exit(1)
	}
	out, _ := json.MarshalIndent(status, "", "  ")
	fmt.Println(string(out))
}
