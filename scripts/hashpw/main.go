// Command hashpw prints the ADMIN_PASSWORD_HASH value for a plaintext
// password supplied as the single argument.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/dealerdesk/dealerdesk/internal/auth"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: hashpw <password>")
		os.Exit(2)
	}
	hash, err := auth.HashPassword(os.Args[1])
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	fmt.Println(hash)
}
