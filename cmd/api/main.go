package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"portfoliochat/internal/adapter/api"
	"portfoliochat/internal/adapter/api/handler"
	apimiddleware "portfoliochat/internal/adapter/api/middleware"
	"portfoliochat/internal/adapter/api/router"
	"portfoliochat/internal/adapter/repository"
	"portfoliochat/internal/adapter/repository/memory"
	"portfoliochat/internal/domain/entity"
	domainrepo "portfoliochat/internal/domain/repository"
	"portfoliochat/internal/infrastructure/firebase"
	"portfoliochat/internal/infrastructure/presence"
	"portfoliochat/internal/infrastructure/ratelimit"
	"portfoliochat/internal/infrastructure/websocket"
	"portfoliochat/internal/usecase"
	"portfoliochat/pkg/config"
)

type stores struct {
	conversations domainrepo.ConversationRepository
	messages      domainrepo.MessageRepository
	users         domainrepo.UserRepository
	reports       domainrepo.ReportRepository
	verifier      firebase.TokenVerifier
	close         func()
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if !cfg.UsesFirebase() {
		log.Printf("Using in-memory store; tokens of the form dev:<uid> are accepted")
		store := memory.NewStore()
		for _, u := range cfg.SeedUsers {
			uid, name, _ := strings.Cut(u, ":")
			if name == "" {
				name = uid
			}
			store.PutUser(&entity.User{UID: uid, DisplayName: name, CreatedAt: time.Now().UTC()})
		}
		return &stores{
			conversations: memory.NewConversationRepository(store),
			messages:      memory.NewMessageRepository(store),
			users:         memory.NewUserRepository(store),
			reports:       memory.NewReportRepository(store),
			verifier:      firebase.DevTokenVerifier{},
			close:         func() {},
		}, nil
	}

	clients, err := firebase.NewClients(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &stores{
		conversations: repository.NewFirestoreConversationRepository(clients.Firestore),
		messages:      repository.NewFirestoreMessageRepository(clients.Firestore),
		users:         repository.NewFirestoreUserRepository(clients.Firestore),
		reports:       repository.NewFirestoreReportRepository(clients.Firestore),
		verifier:      clients.Auth,
		close: func() {
			if err := clients.Close(); err != nil {
				log.Printf("Failed to close Firestore client: %v", err)
			}
		},
	}, nil
}

func openPresence(ctx context.Context, cfg *config.Config) (domainrepo.PresenceRepository, error) {
	if cfg.PresenceDriver == config.PresenceMemory {
		return presence.NewMemoryPresence(cfg.TypingTTL), nil
	}
	return presence.NewRedisPresence(ctx, cfg.RedisURL, cfg.PresenceTTL, cfg.TypingTTL)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.close()

	presenceRepo, err := openPresence(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize presence channel: %v", err)
	}
	defer presenceRepo.Close()

	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine(ctx)

	chatUseCase := usecase.NewChatUseCase(
		st.conversations,
		st.messages,
		st.users,
		st.reports,
		presenceRepo,
		rateLimiter,
		usecase.ChatOptions{
			GeneralChatID:    cfg.GeneralChatID,
			GeneralChatTitle: cfg.GeneralChatTitle,
			PageSize:         cfg.MessagePageSize,
		},
	)
	if _, err := chatUseCase.GetGeneralChat(ctx); err != nil {
		log.Fatalf("Failed to prepare general chat: %v", err)
	}
	log.Printf("General chat ready: %s", chatUseCase.GeneralChatID())

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)

	handler.Setup(chatUseCase)
	if !cfg.UsesFirebase() {
		handler.SetupDevTokenHandler(st.users)
	}

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(apimiddleware.RateLimit(rateLimiter))

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(st.verifier)
	wsHandler := handler.NewWebSocketHandler(ctx, wsManager, authMiddleware, chatUseCase, cfg.TypingIdle, cfg.AllowedOrigins)
	healthHandler := handler.NewHealthHandler(wsManager, cfg.StoreDriver)

	router.Setup(e, authMiddleware, wsHandler, healthHandler)

	go func() {
		log.Printf("Starting server on port %s...", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
