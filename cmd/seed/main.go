package main

import (
	"context"
	"log"
	"os"
	"time"

	"taskhub-be/internal/model"
	"taskhub-be/internal/repository/implementation"
	"taskhub-be/internal/service"
	"taskhub-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/datatypes"
)

// Seeds a pair of demo users with conversations, messages and notifications
// so a fresh environment has something to click on.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	ctx := context.Background()
	chatSvc := service.NewChatService(implementation.NewChatRepository(db))
	notifRepo := implementation.NewNotificationRepository(db)

	alice := uuid.New()
	bob := uuid.New()
	log.Printf("Seeding demo data for users %s (alice) and %s (bob)", alice, bob)

	direct, err := chatSvc.CreateDirectConversation(ctx, alice, bob)
	if err != nil {
		log.Fatalf("Error seeding direct conversation: %v", err)
	}
	for _, content := range []string{
		"Hey, did you see the sprint board?",
		"The deployment task is still unassigned.",
	} {
		if _, err := chatSvc.SendMessage(ctx, direct.Id, alice, content, ""); err != nil {
			log.Fatalf("Error seeding message: %v", err)
		}
	}

	taskID := uuid.New()
	task, err := chatSvc.GetOrCreateTaskConversation(ctx, taskID, []uuid.UUID{alice, bob}, "Deploy v2.0")
	if err != nil {
		log.Fatalf("Error seeding task conversation: %v", err)
	}
	if _, err := chatSvc.SendMessage(ctx, task.Id, bob, "I'll take the rollout checklist.", ""); err != nil {
		log.Fatalf("Error seeding task message: %v", err)
	}

	notification := &model.Notification{
		ID:         uuid.New(),
		UserID:     bob,
		ActorID:    &alice,
		TypeCode:   model.NotificationTaskAssigned,
		EntityType: "task",
		EntityID:   &taskID,
		Title:      "Task assigned",
		Message:    "You were assigned to \"Deploy v2.0\"",
		Metadata:   datatypes.JSON([]byte(`{"seed":true}`)),
		CreatedAt:  time.Now(),
	}
	if err := notifRepo.Create(ctx, notification); err != nil {
		log.Fatalf("Error seeding notification: %v", err)
	}

	log.Println("✅ Demo data seeded successfully.")
}
