package main

import "github.com/oshokin/h5probe/cmd/h5probe/cmd"

func main() {
	cmd.Execute()
}
