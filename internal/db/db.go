package db

import (
	"log"
	"os"

	"campuslink/internal/models"
	"campuslink/internal/utils"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		// Fallback for local dev if not set
		dsn = "host=localhost user=postgres password=postgres dbname=campuslink port=5432 sslmode=disable"
	}

	var err error
	// TranslateError turns uniqueness violations into gorm.ErrDuplicatedKey,
	// which the slug allocator relies on.
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Database connection established")

	// Auto Migrate
	err = DB.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Tag{},
		&models.Trigram{},
		&models.Thread{},
		&models.Reply{},
		&models.Report{},
		&models.Notification{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed")

	seedCategories()
}

func seedCategories() {
	var count int64
	DB.Model(&models.Category{}).Count(&count)
	if count > 0 {
		log.Println("Categories already seeded, skipping")
		return
	}

	names := []string{"General", "Courses", "Exam Prep", "Campus Life"}
	for _, name := range names {
		category := models.Category{Name: name, Slug: utils.Slugify(name)}
		if err := DB.Create(&category).Error; err != nil {
			log.Printf("Failed to create category %s: %v", name, err)
		}
	}
	log.Println("Initial categories created successfully")
}
