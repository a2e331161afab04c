package main

import (
	"encoding/json"
	"os"
)

func jsonMarshalIndent(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}
