package main

import (
	"github.com/starforge/starforge/cmd"
	"github.com/starforge/starforge/internal/config"
)

func main() {
	config.LoadEnv()

	cmd.Execute()
}
