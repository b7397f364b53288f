package main

import (
	"fmt"
	"os"

	"github.com/shaharia-lab/gochat/internal/chatcmd"
)

var version = "dev"

func main() {
	if err := chatcmd.NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
