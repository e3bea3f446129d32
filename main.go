// Command moodangd runs the moo-dang shell core: either as a websocket
// dispatcher for a browser worker (serve) or as a head-less script runner
// (run).
package main

import "github.com/nextlevelbuilder/moodang/cmd"

func main() {
	cmd.Execute()
}
