package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/claimstream/edi-fixtures/edi/edicli"
)

func main() {
	if err := edicli.GetApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
