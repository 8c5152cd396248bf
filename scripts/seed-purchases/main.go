// seed-purchases fills a local database with fake purchases so the redeem
// page and redemption cards can be tried without going through Stripe.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/pipcasso/fulfillment/internal/domain"
	"github.com/pipcasso/fulfillment/internal/purchases"
	"github.com/pipcasso/fulfillment/storage"
)

var variants = []domain.Variant{
	domain.VariantDigitalBasic,
	domain.VariantDigitalHighRes,
	domain.VariantDigitalPDF,
	domain.VariantDigitalBundle,
}

// stdoutNotifier prints the confirmation instead of emailing it.
type stdoutNotifier struct{}

func (stdoutNotifier) SendPurchaseConfirmation(_ context.Context, c purchases.Confirmation) error {
	fmt.Printf("%-32s %s  %s\n", c.Email, c.Code, c.ProjectName)
	return nil
}

func main() {
	count := flag.Int("n", 20, "number of purchases to create")
	seed := flag.Uint64("seed", 0, "faker seed, 0 for random")
	flag.Parse()

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./data/pipcasso.db"
	}

	store, err := storage.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	faker := gofakeit.New(*seed)
	recorder := purchases.NewRecorder(store.Queries, stdoutNotifier{})
	ctx := context.Background()

	fmt.Printf("%-32s %s  %s\n", "EMAIL", "CODE  ", "PROJECT")
	for i := 0; i < *count; i++ {
		project := faker.PetName()
		slug := strings.ToLower(strings.ReplaceAll(project, " ", "-"))
		variant := variants[faker.Number(0, len(variants)-1)]

		sel := domain.Selection{
			Variant:       variant,
			Quantity:      1,
			ProjectName:   project,
			CustomerEmail: faker.Email(),
			Assets: domain.AssetRefs{
				LowResURL:  fmt.Sprintf("https://cdn.pipcasso.test/%s-low.png", slug),
				HighResURL: fmt.Sprintf("https://cdn.pipcasso.test/%s-high.png", slug),
			},
		}
		if variant == domain.VariantDigitalPDF || variant == domain.VariantDigitalBundle {
			sel.Assets.PDFURL = fmt.Sprintf("https://cdn.pipcasso.test/%s.pdf", slug)
		}

		if _, err := recorder.Record(ctx, purchases.RecordInput{
			SessionID: "cs_seed_" + faker.UUID(),
			Selection: sel,
		}); err != nil {
			log.Fatalf("Failed to record purchase %d: %v", i, err)
		}
	}
}
