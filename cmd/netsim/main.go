/*
netsim simulates a network whose routers fail and recover at random while a
sliding-window transfer runs over the current shortest path.
*/
package main

import "github.com/AnastasyaSeveryukhina/interval-and-networks/cmd/netsim/commands"

func main() {
	commands.Execute()
}
