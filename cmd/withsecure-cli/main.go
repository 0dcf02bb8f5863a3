package main

import (
	"log"
	"os"

	"github.com/nais/withsecure-export/internal/exportcli"
)

func main() {
	err := exportcli.NewApp().Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
