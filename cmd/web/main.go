package main

import "mchat_backend/internal/app"

func main() {
	app.Run()
}
