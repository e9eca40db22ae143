package main

import (
	"log"
	"time"

	"chat-server/config"
	"chat-server/controllers"
	"chat-server/models"
	"chat-server/repository"
	"chat-server/routes"
	"chat-server/services"
	"chat-server/utils"
)

const tokenTTL = 24 * time.Hour

func main() {
	cfg := config.Load()
	db := config.InitDB(cfg)
	models.Migrate(db)

	userRepo := repository.NewUserRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	groupMessageRepo := repository.NewGroupMessageRepository(db)

	tokens := utils.NewTokenManager(cfg.JWTSecret, tokenTTL)
	hub := services.NewHub(userRepo, messageRepo, groupRepo, groupMessageRepo, tokens)

	wsController := &controllers.WSController{Hub: hub}
	userController := &controllers.UserController{Users: userRepo, Tokens: tokens}
	groupController := &controllers.GroupController{Groups: groupRepo, Users: userRepo}

	r := routes.RegisterRoutes(wsController, userController, groupController, tokens, userRepo)

	log.Printf("Starting server on port %s...", cfg.Port)
	if err := r.Run(cfg.Addr()); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
