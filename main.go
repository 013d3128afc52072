package main

import (
	_ "github.com/joho/godotenv/autoload"

	"teragrab/cmd"
)

func main() {
	cmd.Execute()
}
