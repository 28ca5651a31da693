package main

import (
	"context"
	"log"

	"taskhub-be/internal/bootstrap"
	"taskhub-be/internal/config"
	"taskhub-be/internal/server"
	"taskhub-be/internal/tracer"
	"taskhub-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Reminder Consumer...")
		if err := container.ReminderService.Consume(context.Background()); err != nil {
			log.Printf("Background Reminder Consumer Error: %v", err)
		}
	}()
	go func() {
		log.Println("Background: Starting Deadline Scanner...")
		if err := container.ReminderService.Start(context.Background()); err != nil {
			log.Printf("Background Deadline Scanner stopped: %v", err)
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
