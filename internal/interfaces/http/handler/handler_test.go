package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/salesinsight/backend/internal/application/analytics"
	"github.com/salesinsight/backend/internal/application/identity"
	"github.com/salesinsight/backend/internal/application/ingest"
	postapp "github.com/salesinsight/backend/internal/application/post"
	"github.com/salesinsight/backend/internal/infrastructure/auth"
	"github.com/salesinsight/backend/internal/infrastructure/cache"
	"github.com/salesinsight/backend/internal/infrastructure/config"
	"github.com/salesinsight/backend/internal/infrastructure/persistence"
	"github.com/salesinsight/backend/internal/infrastructure/scheduler"
	"github.com/salesinsight/backend/internal/infrastructure/storage"
	"github.com/salesinsight/backend/internal/interfaces/http/middleware"
	"github.com/salesinsight/backend/tests/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// testUserHeader stands in for a JWT in handler tests
const testUserHeader = "X-Test-User"

const scenarioCSV = `date,product_name,quantity,price,region
2024-01-05,Widget,3,10,North
2024-01-20,Widget,2,10,South
2024-02-01,Gadget,1,50,North
`

type inlineSubmitter struct{}

func (inlineSubmitter) Submit(_ string, fn scheduler.TaskFunc) error {
	_ = fn(context.Background())
	return nil
}

type apiFixture struct {
	engine      *gin.Engine
	authService *identity.AuthService
	uploads     *ingest.UploadService
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	log := zaptest.NewLogger(t)
	db := testutil.NewSQLiteDB(t)
	blobs, err := storage.NewLocalStorage(t.TempDir(), log)
	require.NoError(t, err)

	uploadRepo := persistence.NewGormUploadRepository(db)
	recordRepo := persistence.NewGormFactRecordRepository(db, 100)
	summaryRepo := persistence.NewGormSummaryRepository(db)

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "handler-test-secret-key-32-chars!",
		RefreshSecret:          "handler-test-refresh-secret-32ch!",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "salesinsight-test",
	})
	authService := identity.NewAuthService(
		persistence.NewGormUserRepository(db),
		persistence.NewGormRefreshTokenRepository(db),
		jwtService,
		log,
	)

	processor := ingest.NewProcessor(uploadRepo, recordRepo, summaryRepo, blobs,
		ingest.ProcessorConfig{MaxRowErrors: 10}, log)
	uploadService := ingest.NewUploadService(uploadRepo, blobs, inlineSubmitter{}, processor, log)
	queryService := analytics.NewQueryService(uploadRepo, recordRepo, summaryRepo,
		cache.NewInMemoryStore(), analytics.Config{CacheTTL: time.Minute}, log)

	authHandler := NewAuthHandler(authService)
	userHandler := NewUserHandler(authService)
	postHandler := NewPostHandler(postapp.NewService(persistence.NewGormPostRepository(db), log))
	fileHandler := NewFileHandler(uploadService, 1<<20)
	analyticsHandler := NewAnalyticsHandler(queryService)

	engine := gin.New()
	engine.Use(middleware.RequestID(), fakeAuth)

	api := engine.Group("/api/v1")
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.RefreshToken)
	api.POST("/auth/logout", authHandler.Logout)
	api.GET("/users/me", userHandler.GetCurrentUser)
	api.GET("/posts", postHandler.List)
	api.POST("/posts", postHandler.Create)
	api.GET("/posts/:id", postHandler.Get)
	api.PUT("/posts/:id", postHandler.Update)
	api.DELETE("/posts/:id", postHandler.Delete)
	api.POST("/files/upload", fileHandler.Upload)
	api.GET("/files", fileHandler.List)
	api.GET("/files/:id/status", fileHandler.GetStatus)
	api.GET("/analytics/summary/:file_id", analyticsHandler.Summary)
	api.GET("/analytics/products", analyticsHandler.Products)
	api.GET("/analytics/regions", analyticsHandler.Regions)
	api.GET("/analytics/monthly", analyticsHandler.Monthly)

	return &apiFixture{engine: engine, authService: authService, uploads: uploadService}
}

// fakeAuth authenticates requests carrying testUserHeader the way the JWT middleware would
func fakeAuth(c *gin.Context) {
	if id := c.GetHeader(testUserHeader); id != "" {
		c.Set(middleware.JWTUserIDKey, id)
	}
	c.Next()
}

func (f *apiFixture) do(req *http.Request, user uuid.UUID) (int, []byte) {
	if user != uuid.Nil {
		req.Header.Set(testUserHeader, user.String())
	}
	w := testutil.PerformRequest(f.engine, req)
	return w.Code, w.Body.Bytes()
}

func (f *apiFixture) upload(t *testing.T, user uuid.UUID, filename, content string) uuid.UUID {
	t.Helper()
	req := testutil.NewMultipartRequest(t, "/api/v1/files/upload", UploadFormField, filename, []byte(content))
	code, body := f.do(req, user)
	require.Equal(t, http.StatusAccepted, code, string(body))
	return testutil.DecodeData[UploadAcceptedResponse](t, body).ID
}
