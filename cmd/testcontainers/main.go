// Command testcontainers starts the full revisiondb container stack
// (database, authorizer, service) outside of the test runner and keeps it
// running until interrupted. Useful for manual API exploration.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/fieldvault/revisiondb/tests/helpers"
)

const usage = `
Run the revisiondb testcontainers with the environment variables from the .env file.

Usage:

testcontainers [-h] [-f ENV_FILE_PATH]

ENV_FILE_PATH: path to the .env file

example
  testcontainers -f /path/to/something/.env
`

func main() {
	showHelp := flag.Bool("h", false, "show help")
	envFilename := flag.String("f", "", "path to the .env file")
	flag.Parse()

	if *showHelp {
		fmt.Print(usage)
		return
	}

	if *envFilename != "" {
		log.Printf("Loading environment variables from %s\n", *envFilename)
		if err := godotenv.Load(*envFilename); err != nil {
			log.Fatalf("Failed to load environment variables: %v\n", err)
		}
	} else {
		log.Printf("No environment file specified, using current environment variables\n")
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGTSTP, syscall.SIGQUIT)

	var tc *helpers.TestContainers
	go func() {
		var err error
		tc, err = helpers.CreateAllTestContainers(nil)
		if err != nil {
			log.Fatalf("Failed to create test containers: %v\n", err)
		}
	}()

	sig := <-sigs
	log.Printf("\nReceived signal: %v, terminating test containers...\n", sig)
	if tc != nil {
		tc.Terminate(nil)
	}
}
