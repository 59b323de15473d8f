package cli

import "os"

// exitWithCode terminates the process with code, unless code is 0 in which
// case cobra's normal successful return path is used.
func exitWithCode(code int) {
	if code == 0 {
		return
	}
	os.Exit(code)
}
