package main

// Build-time variables 'version', 'commit' and 'date' are declared in
// root.go and populated via -ldflags.

// main invokes Execute (root.go), which sets up and runs the root Cobra
// command. Error printing and exit codes follow Cobra's RunE pattern.
func main() {
	Execute()
}
