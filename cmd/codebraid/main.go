package main

import "github.com/mvp-joe/codebraid/internal/cli"

func main() {
	cli.Execute()
}
