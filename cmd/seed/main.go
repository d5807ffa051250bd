package main

import (
	"flag"
	"log"
	"time"

	"coachassist/internal/config"
	"coachassist/internal/database"
	"coachassist/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seeds a demo coach with a spread of leads and timeline activity so the
// dashboard and lead list have something to show on a fresh database.
func main() {
	email := flag.String("email", "demo@coachassist.local", "email for the demo coach")
	password := flag.String("password", "demo1234", "password for the demo coach")
	flag.Parse()

	cfg := config.LoadConfig()
	db := database.InitGorm(cfg)

	var existing models.User
	if err := db.Where("email = ?", *email).First(&existing).Error; err == nil {
		log.Fatalf("User %s already exists, refusing to reseed", *email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	coach := &models.User{
		Name:         "Demo Coach",
		Email:        *email,
		PasswordHash: string(hash),
	}
	if err := db.Create(coach).Error; err != nil {
		log.Fatalf("Failed to create demo coach: %v", err)
	}
	log.Printf("Created coach %s", coach.Email)

	now := time.Now().UTC()
	followUpOverdue := now.Add(-36 * time.Hour)
	followUpSoon := now.Add(48 * time.Hour)

	leads := []models.Lead{
		{Name: "Priya Sharma", Phone: "+919812345001", Source: models.SourceInstagram, Status: models.StatusNew, Tags: "weight-loss"},
		{Name: "Amit Verma", Phone: "+919812345002", Source: models.SourceInstagram, Status: models.StatusContacted, Tags: "strength", NextFollowUpAt: &followUpSoon},
		{Name: "Sneha Rao", Phone: "+919812345003", Source: models.SourceReferral, Status: models.StatusInterested, Tags: "yoga,nutrition", NextFollowUpAt: &followUpOverdue},
		{Name: "Rahul Mehta", Phone: "+919812345004", Source: models.SourceAds, Status: models.StatusConverted, Tags: "strength"},
		{Name: "Kavita Iyer", Phone: "+919812345005", Source: models.SourceWebsite, Status: models.StatusLost},
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		for i := range leads {
			leads[i].AssignedTo = coach.ID
			if err := tx.Create(&leads[i]).Error; err != nil {
				return err
			}
			note := &models.Activity{
				LeadID:      leads[i].ID,
				Type:        models.ActivityNote,
				Description: "Lead created",
				CreatedBy:   coach.ID,
			}
			if err := tx.Create(note).Error; err != nil {
				return err
			}
		}

		// Give the interested lead some history worth paginating.
		dur := 540
		history := []models.Activity{
			{
				LeadID:      leads[2].ID,
				Type:        models.ActivityCall,
				Description: "Discovery call, asked about morning slots",
				Meta:        models.ActivityMeta{Call: &models.CallMeta{DurationSeconds: &dur}},
				CreatedBy:   coach.ID,
			},
			{
				LeadID:      leads[2].ID,
				Type:        models.ActivityWhatsApp,
				Description: "Sent pricing brochure",
				CreatedBy:   coach.ID,
			},
			{
				LeadID:      leads[2].ID,
				Type:        models.ActivityStatusChange,
				Description: "Status changed from CONTACTED to INTERESTED",
				Meta: models.ActivityMeta{StatusChange: &models.StatusChangeMeta{
					PreviousStatus: models.StatusContacted,
					NewStatus:      models.StatusInterested,
				}},
				CreatedBy: coach.ID,
			},
		}
		for i := range history {
			if err := tx.Create(&history[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to seed leads: %v", err)
	}

	log.Printf("Seeded %d leads for %s", len(leads), coach.Email)
	log.Println("Done. Log in with the demo credentials to explore.")
}
