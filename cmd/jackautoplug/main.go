package main

import (
	"os"

	"jackautoplug/daemon"
	"jackautoplug/internal/adapter/jack"
	"jackautoplug/internal/cli"
	"jackautoplug/internal/logging"
)

func main() {
	if err := logging.Configure(logging.LevelInfo); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	os.Exit(cli.Execute(os.Args[1:], openJack, os.Stdout, os.Stderr))
}

func openJack(name string, startServer bool) (daemon.Runtime, error) {
	c, err := jack.Open(name, startServer)
	if err != nil {
		return nil, err
	}
	return c, nil
}
