package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mmdatafocus/posting_backend/config"
	"github.com/mmdatafocus/posting_backend/models"
)

// lookup-cache-flush drops the cached profile, control records and charge rules of one posting
// profile so the next request reads them from the database. Run it after editing those tables.
//
// Example:
//
//	go run ./cmd/lookup-cache-flush/ -profile=P01
func main() {
	profile := flag.String("profile", "", "Required: posting profile code")
	flag.Parse()

	if strings.TrimSpace(*profile) == "" {
		fmt.Fprintln(os.Stderr, "--profile is required")
		os.Exit(1)
	}

	config.ConnectRedisWithRetry()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Only the cache layer is touched; the inner repository is never called.
	cache := models.NewCachedLookupRepository(nil, config.GetRedisDB(), time.Minute, config.GetLogger())
	if err := cache.InvalidateProfile(ctx, strings.TrimSpace(*profile)); err != nil {
		fmt.Fprintln(os.Stderr, "invalidate profile:", err)
		os.Exit(1)
	}
	fmt.Printf("lookup cache cleared for profile %s\n", strings.TrimSpace(*profile))
}
