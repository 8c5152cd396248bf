// print-orders lists print orders that need attention and can resubmit one.
//
//	go run ./scripts/print-orders                 # list pending and failed rows
//	go run ./scripts/print-orders -retry cs_123   # resubmit a failed row
//	go run ./scripts/print-orders -retry cs_123 -force   # resubmit a pending row
//
// A row left "pending" means Gelato never answered: the call timed out, the
// connection dropped, or the process died mid-call. Check the Gelato dashboard
// for an order with that session id as its reference before using -force, or
// the customer gets two prints.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pipcasso/fulfillment/internal/fulfillment"
	"github.com/pipcasso/fulfillment/internal/gelato"
	"github.com/pipcasso/fulfillment/storage"
	"github.com/pipcasso/fulfillment/storage/db"
)

func main() {
	retry := flag.String("retry", "", "stripe session id whose print order should be resubmitted")
	force := flag.Bool("force", false, "resubmit a pending row whose outcome is unknown")
	limit := flag.Int64("limit", 50, "rows to list per status")
	flag.Parse()

	_ = godotenv.Load()

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./data/pipcasso.db"
	}

	store, err := storage.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if *retry != "" {
		resubmit(ctx, store.Queries, *retry, *force)
		return
	}

	for _, status := range []string{"pending", "failed"} {
		rows, err := store.Queries.ListPrintOrdersByStatus(ctx, db.ListPrintOrdersByStatusParams{
			Status: status,
			Limit:  *limit,
		})
		if err != nil {
			log.Fatalf("Failed to list %s print orders: %v", status, err)
		}

		fmt.Printf("=== %s (%d) ===\n", status, len(rows))
		for _, row := range rows {
			fmt.Printf("%s  sku=%s  attempts=%d  updated=%s\n", row.StripeSessionID, row.Sku, row.Attempts, row.UpdatedAt.Format(time.RFC3339))
			if row.LastError.Valid {
				fmt.Printf("    last error: %s\n", row.LastError.String)
			}
		}
	}
}

func resubmit(ctx context.Context, queries *db.Queries, sessionID string, force bool) {
	row, err := queries.GetPrintOrderBySessionID(ctx, sessionID)
	if err != nil {
		log.Fatalf("No print order for session %s: %v", sessionID, err)
	}
	if row.Status == "submitted" {
		log.Fatalf("Print order for %s was already submitted as %s", sessionID, row.ProviderOrderID.String)
	}
	if row.Status == "pending" && !force {
		log.Fatalf("Print order for %s is pending; confirm Gelato has no order for it, then rerun with -force", sessionID)
	}

	apiKey := os.Getenv("GELATO_API_KEY")
	if apiKey == "" {
		log.Fatal("GELATO_API_KEY is required to resubmit")
	}

	client := gelato.NewClient(gelato.Options{
		APIKey:  apiKey,
		BaseURL: os.Getenv("GELATO_BASE_URL"),
	})
	submitter := fulfillment.NewSubmitter(client, queries)

	resubmitRow := submitter.Retry
	if row.Status == "pending" {
		resubmitRow = submitter.ResubmitPending
	}

	providerID, err := resubmitRow(ctx, row)
	if errors.Is(err, fulfillment.ErrAlreadyClaimed) {
		log.Fatalf("Print order for %s changed state while resubmitting; list it again", sessionID)
	}
	if err != nil {
		log.Fatalf("Resubmit failed: %v", err)
	}
	fmt.Printf("Submitted %s as Gelato order %s\n", sessionID, providerID)
}
