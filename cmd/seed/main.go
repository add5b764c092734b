// Seeds demo buyer leads for local development.
//
//	DATABASE_URL=postgres://... go run ./cmd/seed -owner agent-1 -n 25
package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	cities    = []string{"Chandigarh", "Mohali", "Zirakpur", "Panchkula", "Other"}
	types     = []string{"Apartment", "Villa", "Plot", "Office", "Retail"}
	bhks      = []string{"1", "2", "3", "4", "Studio"}
	timelines = []string{"0-3m", "3-6m", ">6m", "Exploring"}
	sources   = []string{"Website", "Referral", "Walk-in", "Call", "Other"}
	statuses  = []string{"New", "Qualified", "Contacted", "Visited", "Negotiation", "Converted", "Dropped"}
	names     = []string{"Asha Verma", "Rahul Gupta", "Simran Kaur", "Vikram Singh", "Neha Sharma", "Arjun Mehta", "Priya Patel", "Karan Bedi"}
)

func main() {
	owner := flag.String("owner", "agent-1", "owner id for the seeded leads")
	count := flag.Int("n", 20, "number of leads to create")
	flag.Parse()

	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("ping db: %v", err)
	}

	for i := 0; i < *count; i++ {
		id := uuid.NewString()
		name := names[i%len(names)]
		city := cities[i%len(cities)]
		propertyType := types[i%len(types)]
		bhk := ""
		if propertyType == "Apartment" || propertyType == "Villa" {
			bhk = bhks[i%len(bhks)]
		}
		purpose := "Buy"
		if i%3 == 0 {
			purpose = "Rent"
		}
		budgetMin := 2000000 + i*250000
		budgetMax := budgetMin + 1500000
		tags := []string{"seed"}
		if i%4 == 0 {
			tags = append(tags, "urgent")
		}

		_, err := db.Exec(`
			INSERT INTO buyers (id, owner_id, full_name, email, phone, city, property_type, bhk,
				purpose, budget_min, budget_max, timeline, source, status, notes, tags, revision)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,1)`,
			id, *owner, name,
			fmt.Sprintf("buyer%d@example.com", i),
			fmt.Sprintf("98765432%02d", i%100),
			city, propertyType, bhk, purpose,
			budgetMin, budgetMax,
			timelines[i%len(timelines)],
			sources[i%len(sources)],
			statuses[i%len(statuses)],
			"seeded demo lead",
			pq.Array(tags),
		)
		if err != nil {
			log.Fatalf("insert lead %d: %v", i, err)
		}

		diff, err := json.Marshal(map[string]any{"action": "created", "data": map[string]string{"fullName": name}})
		if err != nil {
			log.Fatalf("marshal history diff: %v", err)
		}
		if _, err := db.Exec(`
			INSERT INTO buyer_history (id, buyer_id, changed_by, changed_at, diff)
			VALUES ($1,$2,$3,$4,$5)`,
			uuid.NewString(), id, *owner, time.Now().UTC(), diff,
		); err != nil {
			log.Fatalf("insert history %d: %v", i, err)
		}
	}

	fmt.Printf("seeded %d leads for %s\n", *count, *owner)
}
