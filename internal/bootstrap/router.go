package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/tutorai/tutorai-backend/config"
	"github.com/tutorai/tutorai-backend/internal/admin"
	httpapi "github.com/tutorai/tutorai-backend/internal/api/http"
	"github.com/tutorai/tutorai-backend/internal/api/http/middleware"
	authhttp "github.com/tutorai/tutorai-backend/internal/auth/http"
	authmw "github.com/tutorai/tutorai-backend/internal/auth/middleware"
	"github.com/tutorai/tutorai-backend/internal/auth/repository"
	"github.com/tutorai/tutorai-backend/internal/auth/service"
	"github.com/tutorai/tutorai-backend/internal/auth/session"
	"github.com/tutorai/tutorai-backend/internal/chat"
	"github.com/tutorai/tutorai-backend/internal/documents"
	"github.com/tutorai/tutorai-backend/internal/users"
)

type RouterDeps struct {
	ServiceName string
	Cfg         *config.Config
	DB          *pgxpool.Pool
	Redis       *redis.Client
	Retriever   chat.Retriever
	Generator   chat.Generator
	Indexer     documents.Indexer
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     dep.Cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Cfg.App.Version, dep.DB, dep.Cfg.Gemini.APIKey != "")
	healthHandler.RegisterRoutes(r)

	userRepo := repository.NewUserRepo(dep.DB)
	sessions := session.NewStore(dep.Redis, dep.Cfg.Auth.SessionTTL)
	authSvc := service.NewAuthService(userRepo, sessions, dep.Cfg.Auth.JWTSecret, dep.Cfg.Auth.TokenTTL, dep.Cfg.Auth.BcryptCost)

	chatRepo := chat.NewRepo(dep.DB)
	chatSvc := chat.NewService(chatRepo, dep.Retriever, dep.Generator, dep.Cfg.Indexer.TopK)
	askLimiter := middleware.NewRateLimiter(10*time.Second, 3)

	docRepo := documents.NewRepo(dep.DB)
	docSvc := documents.NewService(docRepo, dep.Indexer)

	adminUserRepo := users.NewRepo(dep.DB)
	statsRepo := admin.NewStatsRepo(dep.DB)

	api := r.Group("/api/v1")

	authhttp.Register(api.Group("/auth"), authSvc)

	chatGroup := api.Group("/chat")
	chatGroup.Use(authmw.RequireAuth(authSvc))
	chat.Register(chatGroup, chatRepo, chatSvc, askLimiter.PerUser())

	adminGroup := api.Group("/admin")
	adminGroup.Use(authmw.RequireAuth(authSvc), authmw.RequireAdmin())
	documents.Register(adminGroup.Group("/documents"), docRepo, docSvc, dep.Cfg.Indexer.UploadDir)
	admin.Register(adminGroup, adminUserRepo, sessions, statsRepo, dep.Cfg.Auth.BcryptCost)

	return r
}
