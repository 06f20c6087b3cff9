package database

import (
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"timetable-backend/models"
)

// Migrate creates or updates the schema. Tables are migrated in dependency order
// and nothing is dropped.
func Migrate(db *gorm.DB, adminEmail, adminPassword string) error {
	log.Println("🔄 Starting database migration...")

	tables := []interface{}{
		&models.Department{},
		&models.Class{},
		&models.Room{},
		&models.Subject{},
		&models.TeacherProfile{},
		&models.TeacherSubject{},
		&models.StudentProfile{},
		&models.TimeSlot{},
		&models.TimetableEntry{},
		&models.User{},
		&models.GenerationRun{},
	}

	for _, table := range tables {
		if err := db.AutoMigrate(table); err != nil {
			log.Printf("❌ Error migrating table %T: %v", table, err)
			return err
		}
		log.Printf("✅ Created/Updated table for: %T", table)
	}

	createIndexes(db)

	if err := seedAdmin(db, adminEmail, adminPassword); err != nil {
		log.Printf("⚠️ Error seeding admin: %v", err)
	}

	log.Println("✅ Database migration completed successfully!")
	return nil
}

func createIndexes(db *gorm.DB) {
	log.Println("📊 Creating indexes...")

	stmts := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_entry_class_slot ON timetable_entries(class_id, time_slot_id)",
		"CREATE INDEX IF NOT EXISTS idx_entry_teacher_slot ON timetable_entries(teacher_id, time_slot_id)",
		"CREATE INDEX IF NOT EXISTS idx_entry_room_slot ON timetable_entries(room_id, time_slot_id)",
		"CREATE INDEX IF NOT EXISTS idx_time_slots_day_slot ON time_slots(day, slot)",
		"CREATE INDEX IF NOT EXISTS idx_teacher_profile_name ON teacher_profile(lower(name))",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			log.Printf("⚠️ Warning: could not create index: %v", err)
		}
	}

	log.Println("✅ Indexes created successfully!")
}

func seedAdmin(db *gorm.DB, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("✅ Admin already exists, skipping seed")
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := models.User{
		Email:    email,
		Password: string(hashed),
		Role:     models.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		log.Printf("❌ Error creating admin user: %v", err)
		return err
	}

	log.Printf("✅ Created admin user: %s", admin.Email)
	return nil
}
