package app

import (
	"log"
	"mime"
)

func init() {
	ensureMimeType(".pdf", "application/pdf")
	ensureMimeType(".png", "image/png")
}

func ensureMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		log.Printf("app: failed to register MIME type for %s: %v", ext, err)
	}
}
