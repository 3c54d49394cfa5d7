package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/appflows/booking-flow/internal/auth"
	"github.com/appflows/booking-flow/internal/db"
)

// Every seeded account gets this password so the book and simulate commands
// can sign in.
const seedPassword = "123456"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedProviders(context.Background(), pool, 30); err != nil {
		log.Fatalf("seed providers: %v", err)
	}
	if err := seedUsers(context.Background(), pool, 500); err != nil {
		log.Fatalf("seed users: %v", err)
	}

	log.Println("seed complete")
}

func seedProviders(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d providers", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		avatar := gofakeit.ImageURL(128, 128)

		_, err := tx.Exec(ctx, `
			INSERT INTO providers (id, name, avatar_url, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, avatar)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("providers seeded")
	return nil
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d users", count)

	// One bcrypt hash shared across all seeded accounts.
	hash, err := auth.HashPassword(seedPassword)
	if err != nil {
		return err
	}

	const batchSize = 100

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()
			if i == 0 {
				email = "demo@booking.local"
			}

			_, err := tx.Exec(ctx, `
				INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, id, name, email, hash)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("users seeded: %d/%d", end, count)
	}

	log.Println("users seeded")
	return nil
}
