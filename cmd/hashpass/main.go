// Command hashpass prints a bcrypt hash for LOGIN_PASSPHRASE_HASH.
//
//	echo -n 'the passphrase' | hashpass
//	hashpass -cost 14 'the passphrase'
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	pkgauth "github.com/BradenHooton/tavern-gate/pkg/auth"
)

func main() {
	cost := flag.Int("cost", pkgauth.BcryptCost, "bcrypt cost")
	flag.Parse()

	var passphrase string
	if flag.NArg() > 0 {
		passphrase = strings.Join(flag.Args(), " ")
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(os.Stderr, "hashpass: no passphrase given")
			os.Exit(2)
		}
		passphrase = strings.TrimRight(line, "\r\n")
	}

	hash, err := pkgauth.HashPassphrase(passphrase, *cost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hashpass: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
