// ./main.go
package main

import (
	"github.com/xkilldash9x/petstore-e2e/cmd"
)

// main is the entry point for the petstore-e2e runner.
func main() {
	cmd.Execute()
}
