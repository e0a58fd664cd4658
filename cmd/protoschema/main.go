package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"werewolf-party/internal/protocol"

	"github.com/invopop/jsonschema"
)

// protoschema writes the JSON schema of both websocket message envelopes so
// non-Go clients can validate what they send and receive.
func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the schema; stdout when empty")
	flag.Parse()

	data, err := json.MarshalIndent(buildSchemas(), "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal schema: %v\n", err)
		os.Exit(1)
	}
	data = append(data, '\n')

	if outPath == "" {
		os.Stdout.Write(data)
		return
	}
	if err := writeSchema(outPath, data); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildSchemas() map[string]*jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	client := reflector.Reflect(new(protocol.ClientMessage))
	client.Title = "Client message"
	client.Description = "ping, update or recovery sent by a player to its room"
	server := reflector.Reflect(new(protocol.ServerMessage))
	server.Title = "Server message"
	server.Description = "pong, init, recovery or update broadcast by the room"
	return map[string]*jsonschema.Schema{
		"client": client,
		"server": server,
	}
}

func writeSchema(outPath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}
	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}
	return nil
}
