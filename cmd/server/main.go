// Package main implements the Wren link shortening service.
//
//	@title			Wren Link Shortener API
//	@version		1.0
//	@description	A link shortening service with HTML document rewriting
//	@host			localhost:8080
//	@BasePath		/
//	@schemes		http https
package main

import (
	"go.uber.org/fx"

	_ "github.com/sp3dr4/wren/docs"
	wrenfx "github.com/sp3dr4/wren/internal/fx"
)

func main() {
	fx.New(wrenfx.HTTPServerModules).Run()
}
