package routes

import (
	"net/http"

	"chat-server/controllers"
	"chat-server/middlewares"
	"chat-server/repository"
	"chat-server/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes(
	ws *controllers.WSController,
	users *controllers.UserController,
	groups *controllers.GroupController,
	tokens *utils.TokenManager,
	userRepo repository.UserRepository,
) *gin.Engine {
	r := gin.Default()

	corsConfig := cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}
	r.Use(cors.New(corsConfig))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	r.GET("/ws", ws.Handle)

	api := r.Group("/api")
	api.POST("/auth/register", users.Register)
	api.POST("/auth/login", users.Login)

	protected := api.Group("")
	protected.Use(middlewares.TokenAuthMiddleware(tokens, userRepo))
	{
		protected.GET("/userinfo", users.GetUserInfo)

		protected.POST("/groups", groups.Create)
		protected.GET("/groups", groups.MyGroups)
		protected.GET("/groups/:group_id", groups.Get)
		protected.POST("/groups/:group_id/members", groups.AddMembers)
		protected.DELETE("/groups/:group_id/members/:user_id", groups.RemoveMember)
		protected.POST("/groups/:group_id/admins/:user_id", groups.Promote)
		protected.DELETE("/groups/:group_id/admins/:user_id", groups.Demote)
		protected.POST("/groups/:group_id/mute", groups.Mute)
		protected.DELETE("/groups/:group_id/mute", groups.Unmute)
		protected.POST("/groups/:group_id/leave", groups.Leave)
	}

	return r
}
