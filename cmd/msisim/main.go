// Command msisim runs random load/store workloads on a simulated MSI
// directory hierarchy.
package main

func main() {
	Execute()
}
