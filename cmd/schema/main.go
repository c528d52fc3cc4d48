// Schema writes the JSON Schema of the biome document.
//
// Usage: go run ./cmd/schema -out biome.schema.json
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pthm-cable/biome/config"
)

func main() {
	outPath := flag.String("out", "", "Output file (empty = stdout)")
	flag.Parse()

	data, err := config.SchemaJSON()
	if err != nil {
		fmt.Fprintf(os.Stderr, "schema: %v\n", err)
		os.Exit(1)
	}
	data = append(data, '\n')

	if *outPath == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(*outPath, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "schema: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", *outPath)
}
