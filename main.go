// PageAudit audits web pages against a catalogue of element, page and
// site checks.
package main

import "github.com/gaurav-prasanna/pageaudit/cmd"

func main() {
	cmd.Execute()
}
