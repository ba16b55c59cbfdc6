//go:build !prod

package oscplot

import "embed"

var webuiFiles embed.FS

func openBrowser(url string) {
	// In dev mode the developer opens the browser themselves, likely against
	// a different port.
}
