package main

import "github.com/marcelontime/browser-automation-sub001/cmd"

func main() {
	cmd.Execute()
}
