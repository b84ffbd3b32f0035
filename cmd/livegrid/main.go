package main

import (
	"log"

	_ "github.com/tliron/commonlog/simple"

	"github.com/colelawrence/spreadsheet/internal/commands"
)

func main() {
	if err := commands.New().Execute(); err != nil {
		log.Fatalf("error during command execution: %v", err)
	}
}
