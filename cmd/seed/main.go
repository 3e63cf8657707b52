// seed inserts development sample data for local testing and prints a ready
// magic link for the demo document. Idempotent: skips inserts if the demo
// document already exists.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"lab-results-portal/internal/config"
	"lab-results-portal/internal/db"
	"lab-results-portal/internal/security"
)

const (
	demoTenantID   = "demo-lab-001"
	demoDocumentID = "demo-doc-001"
	demoPhone      = "+15555550123"
	demoFileKey    = "results/demo-doc-001.pdf"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	links := security.NewLinkTokenProvider([]byte(cfg.GuestLinkSecret), cfg.GuestLinkIssuer, cfg.LinkTTL())

	var existing string
	err = conn.QueryRowContext(ctx,
		`SELECT id FROM guest_documents WHERE id = $1`, demoDocumentID).Scan(&existing)
	if err == nil {
		log.Println("Seed already applied (demo document exists). Printing a fresh link.")
		printLink(links)
		os.Exit(0)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		log.Fatalf("seed check: %v", err)
	}

	now := time.Now().UTC()
	dob := time.Date(1990, time.May, 20, 0, 0, 0, 0, time.UTC)
	if _, err := conn.ExecContext(ctx,
		`INSERT INTO guest_documents (id, tenant_id, status, patient_phone, patient_dob, file_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		demoDocumentID, demoTenantID, "DELIVERED", demoPhone, dob, demoFileKey, now); err != nil {
		log.Fatalf("create demo document: %v", err)
	}

	log.Println("Seed completed successfully.")
	fmt.Printf("Demo document: %s (tenant %s, phone %s, DOB 1990-05-20)\n", demoDocumentID, demoTenantID, demoPhone)
	printLink(links)
}

func printLink(links *security.LinkTokenProvider) {
	token, expiresAt, err := links.Issue(demoDocumentID)
	if err != nil {
		log.Fatalf("issue link token: %v", err)
	}
	fmt.Printf("Magic link token (valid until %s):\n%s\n", expiresAt.Format(time.RFC3339), token)
	fmt.Printf("Start a challenge with:\n  curl -X POST localhost:8080/api/guest/challenge -d '{\"token\":\"%s\"}'\n", token)
}
