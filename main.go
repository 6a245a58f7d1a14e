package main

import "github.com/thereayou/pulse-chat/cmd/server"

func main() {
	server.NewServer().Run()
}
