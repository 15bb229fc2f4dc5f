// Command rossete materializes RDF triples from a directory of RML mapping
// documents and the data sources they reference.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
