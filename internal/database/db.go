package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the venues and reviews tables when they do not
// exist yet. The avg_* columns are NULLable on purpose: NULL is the
// stored form of an "unknown" average and is distinct from zero. The
// composite index on reviews backs the duplicate-review lookup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS venues (
			id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			name         VARCHAR(255) NOT NULL,
			location     VARCHAR(255) NOT NULL,
			postcode     VARCHAR(16)  NULL,
			latitude     DOUBLE NULL,
			longitude    DOUBLE NULL,
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_by   VARCHAR(512) NULL,
			avg_coffee   DOUBLE NULL,
			avg_cost     DOUBLE NULL,
			avg_service  DOUBLE NULL,
			avg_hygiene  DOUBLE NULL,
			avg_ambience DOUBLE NULL,
			avg_food     DOUBLE NULL,
			avg_overall  DOUBLE NULL,
			KEY idx_venues_name_location (name, location),
			KEY idx_venues_name_postcode (name, postcode)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS reviews (
			id                 BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			venue_id           BIGINT UNSIGNED NOT NULL,
			venue_name_raw     VARCHAR(255) NOT NULL,
			venue_location_raw VARCHAR(255) NOT NULL,
			reviewer_name      VARCHAR(255) NOT NULL,
			identity_token     VARCHAR(512) NOT NULL,
			visit_date         CHAR(10) NOT NULL,
			coffee             INT NOT NULL,
			cost               INT NOT NULL,
			service            INT NOT NULL,
			hygiene            INT NOT NULL,
			ambience           INT NOT NULL,
			food               INT NOT NULL,
			total_score        INT NOT NULL,
			category_count     INT NOT NULL,
			notes              TEXT NOT NULL,
			photo_path         VARCHAR(512) NULL,
			created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			KEY idx_reviews_venue (venue_id),
			KEY idx_reviews_identity_venue_date (identity_token(64), venue_id, visit_date),
			CONSTRAINT fk_reviews_venue FOREIGN KEY (venue_id) REFERENCES venues (id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
