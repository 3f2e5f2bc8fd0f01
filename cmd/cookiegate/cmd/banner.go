package cmd

import (
	"fmt"
)

// Version is the release version, overridable at build time with
// -ldflags "-X .../cmd.Version=v1.2.3".
var Version = "dev"

const banner = `
   _____            _    _       _____       _
  / ____|          | |  (_)     / ____|     | |
 | |     ___   ___ | | ___  ___| |  __  __ _| |_ ___
 | |    / _ \ / _ \| |/ / |/ _ \ | |_ |/ _` + "`" + ` | __/ _ \
 | |___| (_) | (_) |   <| |  __/ |__| | (_| | ||  __/
  \_____\___/ \___/|_|\_\_|\___|\_____|\__,_|\__\___|

`

func printBanner() {
	fmt.Printf("\x1b[34m%s\x1b[0m", banner)
	fmt.Printf("\x1b[32m  Cookie Authentication Gate - Version %s\x1b[0m\n\n", Version)
}
