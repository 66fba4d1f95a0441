package main

import (
	"github.com/banter-chat/banter/internal/cli"
)

func main() {
	cli.Execute()
}
