package main

import (
	"fmt"
	"os"
)

func helper() {
	os.Exit(1) // allowed outside main.main
}

func main() {
	fmt.Println("starting")
	os.Exit(1) // want "avoid using os.Exit in main.main"
}
