// Command inertiad runs the reference Inertia page server: a small demo
// site wired through the page-contract engine, plus operator commands
// for inspecting and validating registered contracts.
package main

func main() {
	Execute()
}
