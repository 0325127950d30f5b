package app

import (
	"log"
	"mime"
)

func init() {
	ensureMimeType(".yaml", "application/yaml")
	ensureMimeType(".yml", "application/yaml")
}

// ensureMimeType registers typ for ext unless the platform already knows it.
func ensureMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		log.Printf("app: failed to register MIME type for %s: %v", ext, err)
	}
}
