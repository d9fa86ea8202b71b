package main

import (
	"log"

	"weatherapp/internal/env"
)

func main() {
	env.LoadEnv()
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}
