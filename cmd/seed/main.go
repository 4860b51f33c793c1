package main

import (
	"context"
	"errors"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"taskforge/internal/config"
	"taskforge/internal/db"
	"taskforge/internal/model"
	"taskforge/internal/repository"
)

type seedTag struct {
	Name        string
	Color       string
	Description string
}

var starterTags = []seedTag{
	{Name: "work", Color: "#1E88E5", Description: "Work related tasks"},
	{Name: "personal", Color: "#43A047", Description: "Personal errands"},
	{Name: "urgent", Color: "#E53935", Description: "Needs attention soon"},
	{Name: "ideas", Color: "#8E24AA", Description: "Things to explore later"},
}

func main() {
	log.Println("Starting seed script...")

	cfg := config.Load()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Tag{},
		&model.Task{},
		&model.TaskTag{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	ctx := context.Background()
	userRepo := repository.NewUserRepository(gormDB)
	tagRepo := repository.NewTagRepository(gormDB)

	seedAdmin(ctx, userRepo)
	seedTags(ctx, tagRepo)

	log.Println("Seed completed")
}

func seedAdmin(ctx context.Context, users repository.UserRepository) {
	email := envOr("SEED_ADMIN_EMAIL", "admin@taskforge.local")
	password := envOr("SEED_ADMIN_PASSWORD", "Admin1234")

	if _, err := users.FindByEmail(ctx, email); err == nil {
		log.Printf("Admin user %s already exists, skipping", email)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash admin password: %v", err)
	}

	admin := &model.User{
		Username:     envOr("SEED_ADMIN_USERNAME", "admin"),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    "System",
		LastName:     "Admin",
		IsActive:     true,
		Role:         model.RoleAdmin,
	}
	if err := users.Create(ctx, admin); err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}
	log.Printf("Created admin user %s (id=%d)", email, admin.ID)
}

func seedTags(ctx context.Context, tags repository.TagRepository) {
	created := 0
	for _, item := range starterTags {
		_, err := tags.FindByName(ctx, item.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Fatalf("Failed to look up tag %s: %v", item.Name, err)
		}

		tag := &model.Tag{
			Name:        item.Name,
			Color:       item.Color,
			Description: item.Description,
		}
		if err := tags.Create(ctx, tag); err != nil {
			log.Fatalf("Failed to create tag %s: %v", item.Name, err)
		}
		created++
	}
	log.Printf("Seeded %d starter tags (%d already present)", created, len(starterTags)-created)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
