// Command flexlog captures, filters and exports a radio's API traffic from
// the terminal.
package main

func main() {
	Execute()
}
