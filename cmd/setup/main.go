// Command setup runs the interactive configuration wizard and writes a yaml
// config file for the pipeline.
package main

import (
	"log"

	"github.com/kkdrhn/GhostBroker/internal/setup"
)

func main() {
	if err := setup.RunTUI(); err != nil {
		log.Fatal(err)
	}
}
