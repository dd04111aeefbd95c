package main

import "github.com/vietddude/gravity-indexer/internal/cli"

func main() {
	cli.Execute()
}
