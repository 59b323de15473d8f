// Command ralph drives an autonomous iterative-development loop against a
// workspace's spec files.
package main

import "github.com/iwebercodes/ralph/pkg/cli"

func main() {
	cli.Execute()
}
