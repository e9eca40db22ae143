package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chat-server/models"
	"chat-server/repository"
	"chat-server/utils"

	"github.com/gin-gonic/gin"
)

type stubUserRepo struct {
	user *models.User
}

func (r *stubUserRepo) Create(*models.User) error { return nil }

func (r *stubUserRepo) FindByID(id uint) (*models.User, error) {
	if r.user != nil && r.user.ID == id {
		return r.user, nil
	}
	return nil, repository.ErrNotFound
}

func (r *stubUserRepo) FindByUsername(string) (*models.User, error) {
	return nil, repository.ErrNotFound
}

func (r *stubUserRepo) FindByIDs([]uint) ([]models.User, error) { return nil, nil }

func (r *stubUserRepo) UpdatePresence(uint, map[string]interface{}) error { return nil }

func (r *stubUserRepo) Update(*models.User) error { return nil }

func protectedRouter(tokens *utils.TokenManager, users repository.UserRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", TokenAuthMiddleware(tokens, users), func(c *gin.Context) {
		user := c.MustGet("user").(*models.User)
		c.JSON(http.StatusOK, gin.H{"username": user.Username})
	})
	return r
}

func TestTokenAuthMiddleware(t *testing.T) {
	tokens := utils.NewTokenManager("test-secret", time.Hour)
	users := &stubUserRepo{user: &models.User{ID: 42, Username: "alice"}}
	router := protectedRouter(tokens, users)

	valid, err := tokens.Generate(42, "alice")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	orphaned, err := tokens.Generate(99, "ghost")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid token", header: "Bearer " + valid, want: http.StatusOK},
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "no bearer prefix", header: valid, want: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "deleted user", header: "Bearer " + orphaned, want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}
