// Command hashkey prints the bcrypt hash of an admin key, for the
// adminKeyHash config field.
package main

import (
	"fmt"
	"os"

	"akelarre/pkg/auth"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: hashkey <admin-key>")
		os.Exit(2)
	}
	hash, err := auth.HashKey(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash key: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
