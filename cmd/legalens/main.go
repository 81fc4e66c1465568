// Package main is the entry point for the legalens document analysis service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/legalens/cmd/legalens/app"
)

func main() {
	app.NewApp().Run()
}
