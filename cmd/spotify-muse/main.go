// Command spotify-muse runs the Spotify Muse web application.
package main

import "github.com/cwinters/go-spotify-muse/internal/cmd"

func main() {
	cmd.Execute()
}
