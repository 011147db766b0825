package main

import (
	"github.com/Kong/go-pdk/server"
	"github.com/loafoe/kong-plugin-oemgateway/gateway"
)

func main() {
	_ = server.StartServer(gateway.New, "0.1", 1000)
}
