package handler

import (
	"portfoliochat/internal/usecase"
)

var (
	chatHandler *ChatHandler
	userHandler *UserHandler
)

func Setup(chatUseCase *usecase.ChatUseCase) {
	chatHandler = NewChatHandler(chatUseCase)
	userHandler = NewUserHandler(chatUseCase)
}

func GetChatHandler() *ChatHandler {
	return chatHandler
}

func GetUserHandler() *UserHandler {
	return userHandler
}
