//go:build tinygo

package main

import (
	"citadel/app"
	"citadel/hal"
)

func main() {
	app.Run(hal.New())
}
