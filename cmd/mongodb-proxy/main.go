// Package main is the entry point for the MongoDB proxy service.
package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/maxpantech/mongodb-proxy-service/internal/proxy"
)

func main() {
	proxy.NewApp().Run()
}
