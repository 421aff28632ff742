package main

import "speech-transcriber/cmd"

func main() {
	cmd.Execute()
}
