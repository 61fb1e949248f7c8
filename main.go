package main

import "github.com/jmehdipour/customers-api/cmd"

func main() {
	cmd.Execute()
}
