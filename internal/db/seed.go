package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type seedCity struct {
	name     string
	lat, lon float64
}

var seedCities = []seedCity{
	{"London", 51.5074, -0.1278},
	{"Manchester", 53.4808, -2.2426},
	{"Birmingham", 52.4862, -1.8904},
	{"Istanbul", 41.0082, 28.9784},
}

var seedMacroGroups = [][]string{
	{"slavic"}, {"south-asian"}, {"arab"}, {"turkic"}, {"west-african"},
	{"east-asian"}, {"latin"}, {"slavic", "baltic"},
}

var seedEthnicities = []string{
	"Russian", "Pakistani", "Egyptian", "Turkish", "Nigerian",
	"Korean", "Brazilian", "Ukrainian",
}

var seedReligions = [][]string{
	{"christianity"}, {"islam"}, {"islam"}, {"islam"},
	{"christianity"}, {"buddhism"}, {"christianity"}, {"christianity"},
}

var seedInterests = []string{
	"travel", "music", "cooking", "hiking", "photography",
	"reading", "football", "cinema",
}

var seedZodiacs = []string{
	"aries", "taurus", "gemini", "cancer", "leo", "virgo",
	"libra", "scorpio", "sagittarius", "capricorn", "aquarius", "pisces",
}

var seedBios = []string{
	"Love travel and good food, always planning the next trip",
	"Music is my life, playing guitar since forever",
	"Weekend hiker, weekday engineer, coffee always",
	"Looking for someone to share quiet evenings and loud concerts",
	"Foodie exploring every corner of the city",
}

// SeedTestData resets the database and populates it with demo users,
// decisions and a few chats with messages.
//
// Behavior:
//  1. Clears existing data in all tables.
//  2. Creates 20 users (10 male, 10 female) with hashed passwords,
//     coordinates, and culture attributes for the compatibility scorer.
//  3. Generates ~200 decisions with ~70% likes; every 3rd pair is forced
//     mutual so matches and chats exist out of the box.
//  4. Drops an opening message into each forced-mutual pair's chat.
//
// Compatible with both MySQL and SQLite (AUTO_INCREMENT reset skipped for SQLite).
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	for _, table := range []string{"messages", "chats", "connections", "decisions", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		db.Exec("ALTER TABLE messages AUTO_INCREMENT = 1")
		db.Exec("ALTER TABLE users AUTO_INCREMENT = 1")
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name = 'messages'")
		db.Exec("DELETE FROM sqlite_sequence WHERE name = 'users'")
	}

	log.Println("Cleared existing data")

	// --- Seed Users (10 male, 10 female) ---
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	for i := 1; i <= 20; i++ {
		gender := "male"
		if i > 10 {
			gender = "female"
		}

		city := seedCities[r.Intn(len(seedCities))]
		lat := city.lat + (r.Float64()-0.5)*0.2
		lon := city.lon + (r.Float64()-0.5)*0.2
		k := r.Intn(len(seedMacroGroups))

		user := User{
			Username:        fmt.Sprintf("user%d", i),
			Email:           fmt.Sprintf("user%d@example.com", i),
			PasswordHash:    string(hash),
			Gender:          gender,
			Age:             21 + r.Intn(20),
			City:            city.name,
			Latitude:        &lat,
			Longitude:       &lon,
			MacroGroups:     seedMacroGroups[k],
			EthnicityText:   seedEthnicities[k],
			Religions:       seedReligions[k],
			Interests:       pickN(r, seedInterests, 3),
			Zodiac:          seedZodiacs[r.Intn(len(seedZodiacs))],
			Bio:             seedBios[r.Intn(len(seedBios))],
			ProfileComplete: true,
			Active:          true,
			LastLoginAt:     time.Now().Add(-time.Duration(r.Intn(500)) * time.Hour),
		}

		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
	}
	log.Println("Seeded 20 users.")

	// --- Seed Decisions (~200) ---
	upsert := clause.OnConflict{
		Columns:   []clause.Column{{Name: "actor_id"}, {Name: "recipient_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"liked", "updated_at"}),
	}

	counter := 0
	for actorID := uint64(1); actorID <= 20; actorID++ {
		for j := 0; j < 12; j++ {
			recipientID := uint64(r.Intn(20) + 1)
			if actorID == recipientID {
				continue
			}

			var actor, recipient User
			if err := db.First(&actor, actorID).Error; err != nil {
				continue
			}
			if err := db.First(&recipient, recipientID).Error; err != nil {
				continue
			}
			if actor.Gender == recipient.Gender {
				continue
			}

			// like probability 70%
			liked := r.Intn(100) < 70

			// guarantee mutual likes every 3rd pair
			if counter%3 == 0 {
				liked = true
				recip := Decision{ActorID: recipientID, RecipientID: actorID, Liked: true}
				db.Clauses(upsert).Create(&recip)

				if err := seedChat(db, actorID, recipientID); err != nil {
					return err
				}
			}

			decision := Decision{ActorID: actorID, RecipientID: recipientID, Liked: liked}
			if err := db.Clauses(upsert).Create(&decision).Error; err != nil {
				return fmt.Errorf("failed to seed decision: %w", err)
			}

			counter++
		}
	}

	return nil
}

// seedChat drops a chat summary plus one opening message for a mutual pair.
func seedChat(db *gorm.DB, a, b uint64) error {
	id := deterministicChatID(a, b)
	chat := Chat{ID: id, UserAID: a, UserBID: b}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&chat).Error; err != nil {
		return fmt.Errorf("failed to seed chat: %w", err)
	}

	msg := Message{ChatID: id, SenderID: a, Text: "Hey, nice to match with you!", Type: MessageTypeText}
	if err := db.Create(&msg).Error; err != nil {
		return fmt.Errorf("failed to seed message: %w", err)
	}
	return db.Model(&Chat{}).Where("id = ?", id).
		Updates(map[string]interface{}{"last_message": msg.Text, "last_message_at": msg.CreatedAt}).Error
}

// deterministicChatID mirrors chatid.For; duplicated here to keep the db
// package free of upward imports.
func deterministicChatID(a, b uint64) string {
	sa := fmt.Sprintf("%d", a)
	sb := fmt.Sprintf("%d", b)
	if sa > sb {
		sa, sb = sb, sa
	}
	return sa + ":" + sb
}

func pickN(r *rand.Rand, pool []string, n int) []string {
	idx := r.Perm(len(pool))
	if n > len(pool) {
		n = len(pool)
	}
	out := make([]string, 0, n)
	for _, i := range idx[:n] {
		out = append(out, pool[i])
	}
	return out
}
