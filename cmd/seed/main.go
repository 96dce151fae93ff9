package main

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"booklog/internal/config"
	"booklog/internal/db"
	"booklog/internal/model"
	"booklog/internal/repository"
)

const (
	demoEmail    = "demo@booklog.local"
	demoPassword = "password123"
)

type seedBook struct {
	title    string
	author   string
	rating   int
	review   string
	readDate string
	coverURL string
}

var seedBooks = []seedBook{
	{
		title:    "Dune",
		author:   "Frank Herbert",
		rating:   5,
		review:   "The spice must flow.",
		readDate: "2026-01-12",
		coverURL: "https://covers.openlibrary.org/b/id/8474036-L.jpg",
	},
	{
		title:    "The Left Hand of Darkness",
		author:   "Ursula K. Le Guin",
		rating:   4,
		review:   "Slow start, unforgettable second half.",
		readDate: "2026-03-02",
	},
	{
		title:    "Piranesi",
		author:   "Susanna Clarke",
		rating:   5,
		review:   "The House is kind.",
		readDate: "2026-05-21",
	},
}

func main() {
	log.Println("Starting seed script...")

	cfg := config.Load()

	gormDB, err := db.NewPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	if err := gormDB.AutoMigrate(&model.User{}, &model.Book{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	ctx := context.Background()
	userRepo := repository.NewUserRepository(gormDB)
	bookRepo := repository.NewBookRepository(gormDB)

	user, err := ensureDemoUser(ctx, userRepo)
	if err != nil {
		log.Fatalf("Failed to seed demo user: %v", err)
	}
	log.Printf("Demo user ready: %s (id=%d)", user.Email, user.ID)

	created, skipped, err := seedOwnedBooks(ctx, bookRepo, user.ID)
	if err != nil {
		log.Fatalf("Failed to seed books: %v", err)
	}

	log.Printf("Seed completed successfully!")
	log.Printf("  - Books created: %d", created)
	log.Printf("  - Books already present: %d", skipped)
}

// ensureDemoUser creates the demo account on first run and reuses it
// afterwards.
func ensureDemoUser(ctx context.Context, repo repository.UserRepository) (*model.User, error) {
	existing, err := repo.FindByEmail(ctx, demoEmail)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(demoPassword), 10)
	if err != nil {
		return nil, err
	}

	user := &model.User{Email: demoEmail, PasswordHash: string(hashed)}
	if err := repo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repo.FindByEmail(ctx, demoEmail)
		}
		return nil, err
	}
	return user, nil
}

// seedOwnedBooks inserts the fixture books that the owner does not
// already have, keyed by title, so reruns are idempotent.
func seedOwnedBooks(ctx context.Context, repo repository.BookRepository, ownerID uint) (created int, skipped int, err error) {
	existing, err := repo.ListByOwner(ctx, ownerID, repository.SortRecent)
	if err != nil {
		return 0, 0, err
	}
	have := make(map[string]bool, len(existing))
	for _, b := range existing {
		have[b.Title] = true
	}

	for _, sb := range seedBooks {
		if have[sb.title] {
			skipped++
			continue
		}

		book := &model.Book{
			Title:    sb.title,
			Author:   sb.author,
			CoverURL: sb.coverURL,
			OwnerID:  ownerID,
		}
		rating := sb.rating
		book.Rating = &rating
		if sb.review != "" {
			review := sb.review
			book.Review = &review
		}
		if sb.readDate != "" {
			if t, err := time.Parse("2006-01-02", sb.readDate); err == nil {
				book.ReadDate = &t
			}
		}

		if err := repo.Create(ctx, book); err != nil {
			return created, skipped, err
		}
		created++
	}
	return created, skipped, nil
}
