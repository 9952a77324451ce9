// goatforge builds goatd kernels and keeps the kernel header symlinks
// under /lib/modules verified against the installed header trees.
package main

import (
	"github.com/goatd/goatforge/src/goatforge/internal/cmd"
)

func main() {
	cmd.Execute()
}
