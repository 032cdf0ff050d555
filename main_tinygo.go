//go:build tinygo && baremetal

package main

import (
	"context"

	"ember/app"
	"ember/hal"
)

func main() {
	cfg := app.DefaultConfig()
	// The board has no panel yet; the framebuffer is a stub.
	cfg.Console = false
	h := hal.New()
	if err := app.Run(context.Background(), h, cfg); err != nil {
		h.Logger().WriteLineString("ember: " + err.Error())
	}
	select {}
}
