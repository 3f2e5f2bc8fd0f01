package main

import "github.com/tai/cookiegate/cmd/cookiegate/cmd"

func main() {
	cmd.Execute()
}
