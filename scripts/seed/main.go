// Command seed inserts demo accounts and land listings for local development.
// It talks to the same repositories the API uses, so seeded rows match what
// the handlers expect.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/kenailandsales/land-api/internal/models"
	"github.com/kenailandsales/land-api/internal/repository"
	"github.com/kenailandsales/land-api/pkg/config"
	"github.com/kenailandsales/land-api/pkg/database"
)

type seedListing struct {
	title       string
	description string
	price       float64
	acreage     float64
	location    string
	roadAccess  models.RoadAccess
	topography  string
	water       bool
	electric    bool
}

var listings = []seedListing{
	{
		title:       "40 Acres with Mountain Views",
		description: "Wooded recreational parcel bordering state land. Seasonal creek on the east boundary.",
		price:       60000, acreage: 40, location: "Kenai, AK",
		roadAccess: models.RoadAccessGravel, topography: "wooded", water: false, electric: true,
	},
	{
		title:       "River Lot on the Kasilof",
		description: "Five acres of high bank frontage, cleared building pad, power at the road.",
		price:       95000, acreage: 5, location: "Kasilof, AK",
		roadAccess: models.RoadAccessPaved, topography: "cleared", water: true, electric: true,
	},
	{
		title:       "Remote Recreational Parcel",
		description: "Trail access only. Good moose country, borders a ridge with inlet views.",
		price:       22000, acreage: 20, location: "Ninilchik, AK",
		roadAccess: models.RoadAccessTrail, topography: "rolling", water: false, electric: false,
	},
}

func main() {
	var (
		sellerEmail string
		activate    bool
	)
	flag.StringVar(&sellerEmail, "seller", "seller@example.com", "Email for the demo seller account")
	flag.BoolVar(&activate, "activate", true, "Mark seeded listings paid and active")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	userRepo := repository.NewUserRepository(db)
	listingRepo := repository.NewListingRepository(db)

	seller, err := userRepo.FindByEmail(ctx, sellerEmail)
	if err != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}
		seller = &models.User{
			Email:        sellerEmail,
			PasswordHash: string(hash),
			FullName:     "Demo Seller",
			Phone:        "907-555-0104",
		}
		if err := userRepo.Create(ctx, seller); err != nil {
			log.Fatalf("failed to create seller: %v", err)
		}
		log.Printf("created seller %s (password: password123)", sellerEmail)
	}

	now := time.Now().UTC()
	for _, s := range listings {
		listing := &models.Listing{
			OwnerID:           seller.ID,
			Title:             s.title,
			Description:       s.description,
			Price:             s.price,
			Acreage:           s.acreage,
			Location:          s.location,
			RoadAccess:        s.roadAccess,
			Topography:        s.topography,
			UtilitiesWater:    s.water,
			UtilitiesElectric: s.electric,
			Images:            pq.StringArray{},
			Documents:         pq.StringArray{},
			Status:            models.ListingStatusPending,
			PaymentStatus:     models.PaymentStateUnpaid,
			ExpiresAt:         now.Add(cfg.Listings.Duration),
		}
		if err := listingRepo.Create(ctx, listing); err != nil {
			log.Fatalf("failed to create listing %q: %v", s.title, err)
		}
		if activate {
			if err := listingRepo.MarkPaid(ctx, listing.ID); err != nil {
				log.Fatalf("failed to activate listing %q: %v", s.title, err)
			}
		}
		log.Printf("seeded listing %s (%s)", listing.ID, s.title)
	}
}
