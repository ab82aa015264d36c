// Command docsplit splits statute compilations along their heading
// structure from the command line.
package main

func main() {
	Execute()
}
