package main

import "tradeup_backend/internal/app"

func main() {
	app.Run()
}
