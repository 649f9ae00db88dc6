package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/community-chat/modules/auth"
	"github.com/example/community-chat/modules/genai"
	"github.com/example/community-chat/modules/hub"
	"github.com/example/community-chat/modules/storage"
	"github.com/example/community-chat/modules/wsserver"
)

const shutdownTimeout = 30 * time.Second

func main() {
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	logger := app.Logger()

	addr := ":" + envOr("PORT", "3000")

	storageModule := storage.NewModule(logger)
	authModule := auth.NewModule(storageModule, logger)
	hubModule := hub.NewModule(storageModule, logger)
	genaiModule := genai.NewModule(genai.UnavailableCompleter{}, logger)
	serverModule := wsserver.NewModule(addr, authModule, storageModule, hubModule, genaiModule, logger)

	// Registration order is start order: storage first, the server last.
	app.Register(storageModule)
	app.Register(authModule)
	app.Register(hubModule)
	app.Register(genaiModule)
	app.Register(serverModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
	log.Printf("Community chat listening on %s", addr)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
