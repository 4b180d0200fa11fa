package db

import (
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"Gin_postgres_redis_hvac_inventory/models"
)

var DB *gorm.DB

func ConnectDB() *gorm.DB {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatal("Failed to migrate models: ", err)
	}
	log.Println("Database connected")
	return DB
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Item{}); err != nil {
		return err
	}

	// 列表默认按 updated_at 倒序，给它个专用索引
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_updated_at_desc
	  ON %s (updated_at DESC);
	`, models.ItemTable, models.ItemTable)).Error; err != nil {
		return err
	}

	// 扫码按 serial 查（大小写不敏感）
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_serial_lower
	  ON %s (LOWER(serial))
	  WHERE serial IS NOT NULL;
	`, models.ItemTable, models.ItemTable)).Error; err != nil {
		return err
	}

	return nil
}
