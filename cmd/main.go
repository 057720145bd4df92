package main

import "runtime"

// HighGUI windows must be driven from the main thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	Execute()
}
