package main

import (
	"os"

	pkglog "github.com/weiawesome/streamchat/pkg/log"
)

func main() {
	if err := Execute(); err != nil {
		l := pkglog.L()
		l.Error().Err(err).Msg("streamchat exited with error")
		os.Exit(1)
	}
}
