package main

import "github.com/openexpoota/ota/cmd"

func main() {
	cmd.Execute()
}
