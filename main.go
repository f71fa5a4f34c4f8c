package main

import "github.com/saneksa/code-rag-review/cmd"

func main() {
	cmd.Execute()
}
