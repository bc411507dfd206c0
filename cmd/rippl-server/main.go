package main

import (
	"github.com/sirupsen/logrus"

	"github.com/rippl-labs/rippl-server/pkg/grpc/app"
	"github.com/rippl-labs/rippl-server/pkg/rippl/server"
)

func main() {
	if err := app.Run(server.New()); err != nil {
		logrus.WithError(err).Fatal("error running service")
	}
}
