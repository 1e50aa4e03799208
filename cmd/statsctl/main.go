package main

import (
	"log"
	"os"

	"github.com/statsadmin/client/cli"
	_ "github.com/viant/scy/kms/blowfish"
)

func main() {
	if err := cli.Run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}
