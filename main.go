package main

import "github.com/gaurav-prasanna/chatexport/cmd"

func main() {
	cmd.Execute()
}
