package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/mmdatafocus/posting_backend/config"
	"github.com/mmdatafocus/posting_backend/models"
)

// pending-report lists reservations that are still Pending after the given age. These are requests
// whose process stopped between reserving and reconciling; the core may or may not have posted them,
// so they need a manual check against the core's journal. The report never changes a row.
//
// Example:
//
//	go run ./cmd/pending-report/ -older-than=30m -limit=200
func main() {
	olderThan := flag.Duration("older-than", 15*time.Minute, "Only list rows created before now minus this age")
	limit := flag.Int("limit", 100, "Max rows to print")
	flag.Parse()

	if *olderThan < 0 || *limit <= 0 {
		fmt.Fprintln(os.Stderr, "--older-than must be >= 0 and --limit > 0")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-*olderThan)
	rows, err := models.NewGormReservationRepository(db).ListPendingOlderThan(ctx, cutoff, *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list pending reservations:", err)
		os.Exit(1)
	}

	fmt.Printf("pending reservations created before %s: %d\n", cutoff.Format(time.RFC3339), len(rows))
	if len(rows) == 0 {
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BATCH\tSEQUENCE\tACCOUNT\tNATURE\tDEBIT\tCREDIT\tMERCHANT\tTERMINAL\tCREATED\tCORRELATION")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.BatchNumber, r.SequenceId, r.Account, r.AccountingNature,
			r.DebitAmount.StringFixed(2), r.CreditAmount.StringFixed(2),
			r.MerchantCode, r.Terminal, r.CreatedAt.UTC().Format(time.RFC3339), r.CorrelationId)
	}
	_ = w.Flush()
}
