// Command cricketstats はインド代表クリケット選手の成績管理サーバーを起動する。
//
//	cricketstats [serve|worker|migrate|healthcheck]
//	cricketstats promote|demote <user-id>
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/cricketstats/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
