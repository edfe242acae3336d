package main

import (
	"deals-bot/bot"
	"deals-bot/handlers"
)

func main() {
	bot.Run(handlers.Register)
}
