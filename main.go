// The main package for the crawl config service executable.
package main

import (
	"github.com/kayiwa/browsertrix-cloud/cmd"
)

func main() {
	cmd.Execute()
}
