package main

import "github.com/jcdickinson/twdocset/cmd"

func main() {
	cmd.Execute()
}
