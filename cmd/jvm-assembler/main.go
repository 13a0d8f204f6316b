package main

import "github.com/oshokin/jvm-assembler/cmd/jvm-assembler/cmd"

func main() {
	cmd.Execute()
}
