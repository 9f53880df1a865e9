// cmd/genhash prints the bcrypt hash of a confirmation phrase, ready for
// PURGE_DATA_PHRASE_HASH or PURGE_FILES_PHRASE_HASH.
// Uso: go run ./cmd/genhash "BORRAR TODO"
package main

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	if len(os.Args) != 2 || os.Args[1] == "" {
		fmt.Fprintln(os.Stderr, "uso: genhash <frase>")
		os.Exit(2)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(os.Args[1]), 12)
	if err != nil {
		panic(err)
	}
	fmt.Println(string(h))
}
